package credits

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	balances map[string]Balance
	refunded map[string]struct{}
	debited  map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		balances: make(map[string]Balance),
		refunded: make(map[string]struct{}),
		debited:  make(map[string]struct{}),
	}
}

func (s *memoryStore) Ensure(ctx context.Context, userID string, initial int) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	if !ok {
		b = Balance{UserID: userID, Credits: initial, UpdatedAt: time.Now().UTC()}
		s.balances[userID] = b
	}
	return b, nil
}

func (s *memoryStore) Debit(ctx context.Context, r Reservation) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.balances[r.UserID]
	if b.Credits < r.Amount {
		return Balance{}, ErrInsufficientCredits
	}
	b.UserID = r.UserID
	b.Credits -= r.Amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[r.UserID] = b
	s.debited[r.ID] = struct{}{}
	return b, nil
}

func (s *memoryStore) Refund(ctx context.Context, r Reservation) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.balances[r.UserID]
	if _, ok := s.debited[r.ID]; !ok {
		return b, nil
	}
	if _, done := s.refunded[r.ID]; done {
		return b, nil
	}
	b.Credits += r.Amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[r.UserID] = b
	s.refunded[r.ID] = struct{}{}
	return b, nil
}

func (s *memoryStore) Add(ctx context.Context, userID string, n int, _ string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.balances[userID]
	b.UserID = userID
	b.Credits += n
	b.UpdatedAt = time.Now().UTC()
	s.balances[userID] = b
	return b, nil
}
