package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/service"
)

type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.svc.GetStats(c.Context())
	if err != nil {
		return writeError(c, err, "get_stats")
	}
	return c.JSON(stats)
}
