package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

const (
	maxVoteAttempts = 3
	voteRetryDelay  = 20 * time.Millisecond
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// GetAggregate returns the tally for an item, or nil if nobody has voted.
func (r *VoteRepo) GetAggregate(ctx context.Context, itemID int64) (*model.VoteAggregate, error) {
	agg := model.VoteAggregate{ItemID: itemID}
	err := r.pool.QueryRow(ctx, `
		SELECT upvotes, downvotes FROM vote_aggregates WHERE item_id = $1`, itemID,
	).Scan(&agg.Upvotes, &agg.Downvotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store(err)
	}
	return &agg, nil
}

// GetUserVote returns the user's live vote on an item, or nil.
func (r *VoteRepo) GetUserVote(ctx context.Context, userID string, itemID int64) (*model.UserVote, error) {
	v, err := scanUserVote(r.pool.QueryRow(ctx, `
		SELECT user_id, user_email, item_id, vote_type, reason, voted_at
		FROM user_votes WHERE user_id = $1 AND item_id = $2`, userID, itemID))
	if err != nil {
		return nil, apperr.Store(err)
	}
	return v, nil
}

// ApplyVote runs the read-plan-write cycle in one transaction. If a
// concurrent cast by the same user wins the race (unique violation on the
// vote row, or a serialization failure) the whole cycle is retried so the
// plan is made against the committed prior vote.
func (r *VoteRepo) ApplyVote(ctx context.Context, userID string, itemID int64, plan func(prior *model.UserVote) model.VoteTransition) (model.VoteTransition, model.VoteAggregate, error) {
	var err error
	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		var (
			t   model.VoteTransition
			agg model.VoteAggregate
		)
		t, agg, err = r.applyVoteOnce(ctx, userID, itemID, plan)
		if err == nil {
			return t, agg, nil
		}
		if !isRetryable(err) {
			break
		}
		select {
		case <-time.After(voteRetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return model.VoteTransition{}, model.VoteAggregate{}, apperr.Store(ctx.Err())
		}
	}
	return model.VoteTransition{}, model.VoteAggregate{}, apperr.Store(err)
}

func (r *VoteRepo) applyVoteOnce(ctx context.Context, userID string, itemID int64, plan func(prior *model.UserVote) model.VoteTransition) (model.VoteTransition, model.VoteAggregate, error) {
	var (
		t   model.VoteTransition
		agg = model.VoteAggregate{ItemID: itemID}
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return t, agg, err
	}
	defer tx.Rollback(ctx)

	prior, err := scanUserVote(tx.QueryRow(ctx, `
		SELECT user_id, user_email, item_id, vote_type, reason, voted_at
		FROM user_votes WHERE user_id = $1 AND item_id = $2
		FOR UPDATE`, userID, itemID))
	if err != nil {
		return t, agg, err
	}

	t = plan(prior)

	// Counters only ever move by atomic deltas; GREATEST keeps them at zero
	// or above even if they were already inconsistent.
	err = tx.QueryRow(ctx, `
		INSERT INTO vote_aggregates (item_id, upvotes, downvotes)
		VALUES ($1, GREATEST($2::int, 0), GREATEST($3::int, 0))
		ON CONFLICT (item_id) DO UPDATE
		SET upvotes = GREATEST(vote_aggregates.upvotes + $2::int, 0),
		    downvotes = GREATEST(vote_aggregates.downvotes + $3::int, 0),
		    last_updated = NOW()
		RETURNING upvotes, downvotes`,
		itemID, t.UpDelta, t.DownDelta,
	).Scan(&agg.Upvotes, &agg.Downvotes)
	if err != nil {
		return t, agg, err
	}

	switch {
	case t.Stored == nil:
		_, err = tx.Exec(ctx, `DELETE FROM user_votes WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	case prior == nil:
		// Plain INSERT: a concurrent first vote by the same user fails the
		// primary key and the cycle is retried.
		_, err = tx.Exec(ctx, `
			INSERT INTO user_votes (user_id, item_id, user_email, vote_type, reason, voted_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, itemID, t.Stored.UserEmail, string(t.Stored.VoteType), nullable(t.Stored.Reason), t.Stored.VotedAt)
	default:
		_, err = tx.Exec(ctx, `
			UPDATE user_votes
			SET user_email = $3, vote_type = $4, reason = $5, voted_at = $6
			WHERE user_id = $1 AND item_id = $2`,
			userID, itemID, t.Stored.UserEmail, string(t.Stored.VoteType), nullable(t.Stored.Reason), t.Stored.VotedAt)
	}
	if err != nil {
		return t, agg, fmt.Errorf("write user vote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return t, agg, err
	}
	return t, agg, nil
}

func scanUserVote(row pgx.Row) (*model.UserVote, error) {
	var (
		v        model.UserVote
		voteType string
		reason   *string
	)
	err := row.Scan(&v.UserID, &v.UserEmail, &v.ItemID, &voteType, &reason, &v.VotedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.VoteType = model.VoteType(voteType)
	if reason != nil {
		v.Reason = *reason
	}
	return &v, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
