package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/service"
)

type TrustHandler struct {
	svc *service.TrustService
}

func NewTrustHandler(svc *service.TrustService) *TrustHandler {
	return &TrustHandler{svc: svc}
}

// Get handles GET /api/items/:itemId/trust?itemName=...&contentId=...
// The query parameters are only needed the first time an item is scored.
func (h *TrustHandler) Get(c fiber.Ctx) error {
	itemID, err := itemIDParam(c)
	if err != nil {
		return writeError(c, err, "get_trust")
	}

	ts, err := h.svc.GetOrCompute(c.Context(), itemID, c.Query("itemName"), c.Query("contentId"))
	if err != nil {
		return writeError(c, err, "get_trust")
	}
	return c.JSON(ts)
}
