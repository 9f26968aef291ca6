package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/middleware"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/validation"
)

type errorMapping struct {
	status  int
	code    string
	message string // used when the error carries no caller-safe message
}

var errorMappings = map[apperr.Kind]errorMapping{
	apperr.Unauthenticated:      {fiber.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required"},
	apperr.InvalidInput:         {fiber.StatusBadRequest, "INVALID_INPUT", "Invalid request"},
	apperr.RateLimited:          {fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests"},
	apperr.PendingTransaction:   {fiber.StatusAccepted, "TX_PENDING", "Transaction not yet confirmed, try again shortly"},
	apperr.TransactionFailed:    {fiber.StatusPaymentRequired, "TX_FAILED", "Transaction failed on chain"},
	apperr.WrongContract:        {fiber.StatusUnprocessableEntity, "WRONG_CONTRACT", "Transaction was not sent to the marketplace contract"},
	apperr.PriceMismatch:        {fiber.StatusUnprocessableEntity, "PRICE_MISMATCH", "Paid amount does not match the item price"},
	apperr.DuplicateTransaction: {fiber.StatusConflict, "DUPLICATE_TRANSACTION", "Transaction already used for another purchase"},
	apperr.NotFound:             {fiber.StatusNotFound, "NOT_FOUND", "Not found"},
	apperr.StoreUnavailable:     {fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable"},
}

// writeError maps err to its HTTP status and stable code. Store failures
// never expose their message; their cause is logged instead.
func writeError(c fiber.Ctx, err error, op string) error {
	kind := apperr.KindOf(err)
	m := errorMappings[kind]

	msg := m.message
	if ae, ok := apperr.As(err); ok && ae.Message != "" && kind != apperr.StoreUnavailable {
		msg = ae.Message
	}

	if kind == apperr.StoreUnavailable {
		middleware.Logger.Error().Err(err).Str("op", op).Msg("request failed")
	} else {
		middleware.Logger.Debug().Err(err).Str("op", op).Str("kind", string(kind)).Msg("request rejected")
	}
	return middleware.ErrorResponse(c, m.status, m.code, msg)
}

// itemIDParam parses the :itemId path segment.
func itemIDParam(c fiber.Ctx) (int64, error) {
	id, errMsg := validation.ValidateItemID(c.Params("itemId"))
	if errMsg != "" {
		return 0, apperr.Invalid(errMsg)
	}
	return id, nil
}
