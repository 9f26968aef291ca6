package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

type userItem struct {
	userID string
	itemID int64
}

// MemoryStore is an in-process implementation of the purchase, vote, trust
// and stats stores. It enforces the same uniqueness rules as the Postgres
// schema under a single mutex. Used for local development
// (DATABASE_URL=memory) and tests.
type MemoryStore struct {
	mu         sync.Mutex
	purchases  map[string]*model.Purchase // by tx hash
	byUserItem map[userItem]*model.Purchase
	aggregates map[int64]*model.VoteAggregate
	votes      map[userItem]*model.UserVote
	trust      map[int64]*model.TrustScore
	err        error
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		purchases:  make(map[string]*model.Purchase),
		byUserItem: make(map[userItem]*model.Purchase),
		aggregates: make(map[int64]*model.VoteAggregate),
		votes:      make(map[userItem]*model.UserVote),
		trust:      make(map[int64]*model.TrustScore),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithError makes every subsequent call fail with StoreUnavailable wrapping err.
// Pass nil to clear.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) failure() error {
	if m.err != nil {
		return apperr.Store(m.err)
	}
	return nil
}

func (m *MemoryStore) RecordPurchase(_ context.Context, p *model.Purchase) (*model.Purchase, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, false, err
	}

	if existing, ok := m.purchases[p.TxHash]; ok {
		if existing.UserID != p.UserID || existing.ItemID != p.ItemID {
			return nil, false, apperr.E(apperr.DuplicateTransaction, "transaction already used for another purchase")
		}
		cp := *existing
		return &cp, false, nil
	}
	key := userItem{p.UserID, p.ItemID}
	if existing, ok := m.byUserItem[key]; ok {
		cp := *existing
		return &cp, false, nil
	}

	rec := *p
	rec.ID = uuid.NewString()
	rec.PurchasedAt = m.now()
	m.purchases[rec.TxHash] = &rec
	m.byUserItem[key] = &rec

	cp := rec
	return &cp, true, nil
}

func (m *MemoryStore) FindPurchase(_ context.Context, userID string, itemID int64) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	p, ok := m.byUserItem[userItem{userID, itemID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListPurchases(_ context.Context, userID string) ([]model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	var out []model.Purchase
	for k, p := range m.byUserItem {
		if k.userID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].ItemID > out[j].ItemID
		}
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})
	return out, nil
}

// PurchaseCount returns the number of stored grants.
func (m *MemoryStore) PurchaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purchases)
}

func (m *MemoryStore) GetAggregate(_ context.Context, itemID int64) (*model.VoteAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	agg, ok := m.aggregates[itemID]
	if !ok {
		return nil, nil
	}
	cp := *agg
	return &cp, nil
}

func (m *MemoryStore) GetUserVote(_ context.Context, userID string, itemID int64) (*model.UserVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	v, ok := m.votes[userItem{userID, itemID}]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryStore) ApplyVote(_ context.Context, userID string, itemID int64, plan func(prior *model.UserVote) model.VoteTransition) (model.VoteTransition, model.VoteAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return model.VoteTransition{}, model.VoteAggregate{}, err
	}

	key := userItem{userID, itemID}
	var prior *model.UserVote
	if v, ok := m.votes[key]; ok {
		cp := *v
		prior = &cp
	}

	t := plan(prior)

	agg, ok := m.aggregates[itemID]
	if !ok {
		agg = &model.VoteAggregate{ItemID: itemID}
		m.aggregates[itemID] = agg
	}
	agg.Upvotes = max(agg.Upvotes+t.UpDelta, 0)
	agg.Downvotes = max(agg.Downvotes+t.DownDelta, 0)

	if t.Stored == nil {
		delete(m.votes, key)
	} else {
		v := *t.Stored
		m.votes[key] = &v
	}
	return t, *agg, nil
}

func (m *MemoryStore) GetTrustScore(_ context.Context, itemID int64) (*model.TrustScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	ts, ok := m.trust[itemID]
	if !ok {
		return nil, nil
	}
	cp := *ts
	return &cp, nil
}

func (m *MemoryStore) InsertTrustScore(_ context.Context, ts *model.TrustScore) (*model.TrustScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	if existing, ok := m.trust[ts.ItemID]; ok {
		cp := *existing
		return &cp, nil
	}
	rec := *ts
	m.trust[ts.ItemID] = &rec
	cp := rec
	return &cp, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*model.StatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}

	stats := &model.StatsResponse{
		TotalPurchases: len(m.purchases),
		TotalVotes:     len(m.votes),
		ScoredItems:    len(m.trust),
	}
	buyers := make(map[string]struct{})
	cutoff := m.now().Add(-24 * time.Hour)
	for _, p := range m.purchases {
		buyers[p.UserID] = struct{}{}
		if p.PurchasedAt.After(cutoff) {
			stats.Purchases24h++
		}
	}
	stats.TotalBuyers = len(buyers)
	for _, agg := range m.aggregates {
		if agg.Upvotes+agg.Downvotes > 0 {
			stats.VotedItems++
		}
	}
	return stats, nil
}
