package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/middleware"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
}

func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Cast handles POST /api/items/:itemId/votes
func (h *VoteHandler) Cast(c fiber.Ctx) error {
	itemID, err := itemIDParam(c)
	if err != nil {
		return writeError(c, err, "cast_vote")
	}

	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	id := middleware.IdentityFrom(c)
	resp, err := h.svc.CastVote(c.Context(), id.UserID, id.Email, itemID, req.VoteType, req.Reason)
	if err != nil {
		return writeError(c, err, "cast_vote")
	}
	return c.JSON(resp)
}

// Aggregate handles GET /api/items/:itemId/votes
func (h *VoteHandler) Aggregate(c fiber.Ctx) error {
	itemID, err := itemIDParam(c)
	if err != nil {
		return writeError(c, err, "get_votes")
	}

	agg, err := h.svc.GetAggregate(c.Context(), itemID)
	if err != nil {
		return writeError(c, err, "get_votes")
	}
	return c.JSON(model.AggregateResponse{
		ItemID:    itemID,
		Upvotes:   agg.Upvotes,
		Downvotes: agg.Downvotes,
		Score:     agg.Score(),
	})
}

// Mine handles GET /api/items/:itemId/votes/me
func (h *VoteHandler) Mine(c fiber.Ctx) error {
	itemID, err := itemIDParam(c)
	if err != nil {
		return writeError(c, err, "get_my_vote")
	}

	vt, err := h.svc.GetUserVote(c.Context(), middleware.IdentityFrom(c).UserID, itemID)
	if err != nil {
		return writeError(c, err, "get_my_vote")
	}
	return c.JSON(model.UserVoteResponse{ItemID: itemID, VoteType: vt})
}
