package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/middleware"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/service"
)

type PurchaseHandler struct {
	svc *service.PurchaseService
}

func NewPurchaseHandler(svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

// Verify handles POST /api/purchases/verify
func (h *PurchaseHandler) Verify(c fiber.Ctx) error {
	var req model.PurchaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	res, err := h.svc.VerifyAndRecord(c.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		return writeError(c, err, "verify_purchase")
	}

	status := fiber.StatusCreated
	if res.AlreadyPurchased {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(model.PurchaseResponse{
		Success:          true,
		AlreadyPurchased: res.AlreadyPurchased,
		Purchase:         res.Purchase,
	})
}

// List handles GET /api/purchases
func (h *PurchaseHandler) List(c fiber.Ctx) error {
	purchases, err := h.svc.ListPurchases(c.Context(), middleware.IdentityFrom(c).UserID)
	if err != nil {
		return writeError(c, err, "list_purchases")
	}
	return c.JSON(model.PurchaseListResponse{Purchases: purchases})
}

// Get handles GET /api/purchases/:itemId
func (h *PurchaseHandler) Get(c fiber.Ctx) error {
	itemID, err := itemIDParam(c)
	if err != nil {
		return writeError(c, err, "get_purchase")
	}

	p, err := h.svc.GetPurchase(c.Context(), middleware.IdentityFrom(c).UserID, itemID)
	if err != nil {
		return writeError(c, err, "get_purchase")
	}
	return c.JSON(p)
}
