package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/validation"
)

// VoteStore persists tallies and per-user votes.
type VoteStore interface {
	// GetAggregate returns nil when the item has never been voted on.
	GetAggregate(ctx context.Context, itemID int64) (*model.VoteAggregate, error)
	// GetUserVote returns nil when the user has no live vote on the item.
	GetUserVote(ctx context.Context, userID string, itemID int64) (*model.UserVote, error)
	// ApplyVote reads the prior vote, asks plan for the transition and applies
	// counter deltas plus the vote row write as one atomic unit. Counters
	// never drop below zero.
	ApplyVote(ctx context.Context, userID string, itemID int64, plan func(prior *model.UserVote) model.VoteTransition) (model.VoteTransition, model.VoteAggregate, error)
}

type VoteService struct {
	store  VoteStore
	cache  *CacheService
	logger zerolog.Logger
	now    func() time.Time
}

func NewVoteService(store VoteStore, cache *CacheService, logger zerolog.Logger) *VoteService {
	return &VoteService{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "vote").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetAggregate returns the tally for itemID, {0,0} when none exists.
func (s *VoteService) GetAggregate(ctx context.Context, itemID int64) (model.VoteAggregate, error) {
	if cached := s.cache.GetAggregate(ctx, itemID); cached != nil {
		return *cached, nil
	}

	agg, err := s.store.GetAggregate(ctx, itemID)
	if err != nil {
		return model.VoteAggregate{}, err
	}
	if agg == nil {
		agg = &model.VoteAggregate{ItemID: itemID}
	}
	s.cache.SetAggregate(ctx, *agg)
	return *agg, nil
}

// GetUserVote returns the user's live vote type, or nil.
func (s *VoteService) GetUserVote(ctx context.Context, userID string, itemID int64) (*model.VoteType, error) {
	v, err := s.store.GetUserVote(ctx, userID, itemID)
	if err != nil || v == nil {
		return nil, err
	}
	vt := v.VoteType
	return &vt, nil
}

// CastVote applies toggle/switch semantics: a first vote counts, repeating
// the same vote withdraws it, and the opposite vote moves the count across.
// Downvote reasons are recorded as given; a missing reason is accepted.
func (s *VoteService) CastVote(ctx context.Context, userID, userEmail string, itemID int64, voteType model.VoteType, reason string) (*model.VoteResponse, error) {
	if userID == "" {
		return nil, apperr.E(apperr.Unauthenticated, "identity required")
	}
	if itemID < 0 {
		return nil, apperr.Invalid("itemId must be a non-negative integer")
	}
	voteType, errMsg := validation.ValidateVoteType(voteType)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	reason, errMsg = validation.ValidateReason(reason)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	if voteType == model.VoteUp {
		reason = ""
	}

	next := model.UserVote{
		UserID:    userID,
		UserEmail: userEmail,
		ItemID:    itemID,
		VoteType:  voteType,
		Reason:    reason,
		VotedAt:   s.now(),
	}

	transition, agg, err := s.store.ApplyVote(ctx, userID, itemID, func(prior *model.UserVote) model.VoteTransition {
		return PlanVote(prior, next)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("item_id", itemID).Msg("cast vote failed")
		return nil, err
	}

	s.cache.InvalidateAggregate(ctx, itemID)
	metrics.VotesTotal.WithLabelValues(string(voteType), string(transition.Action)).Inc()

	resp := &model.VoteResponse{
		Success:   true,
		Action:    transition.Action,
		Upvotes:   agg.Upvotes,
		Downvotes: agg.Downvotes,
		Score:     agg.Score(),
	}
	if transition.Stored != nil {
		vt := transition.Stored.VoteType
		resp.UserVote = &vt
	}
	return resp, nil
}

// PlanVote maps (prior vote, new vote) to counter deltas and the row to keep:
//
//	none → X : +X, store X
//	X    → X : −X, delete
//	X    → Y : −X +Y, store Y
func PlanVote(prior *model.UserVote, next model.UserVote) model.VoteTransition {
	switch {
	case prior == nil:
		t := model.VoteTransition{Action: model.VoteAdded, Stored: &next}
		addDelta(&t, next.VoteType, 1)
		return t
	case prior.VoteType == next.VoteType:
		t := model.VoteTransition{Action: model.VoteRemoved}
		addDelta(&t, prior.VoteType, -1)
		return t
	default:
		t := model.VoteTransition{Action: model.VoteSwitched, Stored: &next}
		addDelta(&t, prior.VoteType, -1)
		addDelta(&t, next.VoteType, 1)
		return t
	}
}

func addDelta(t *model.VoteTransition, v model.VoteType, d int) {
	if v == model.VoteUp {
		t.UpDelta += d
	} else {
		t.DownDelta += d
	}
}
