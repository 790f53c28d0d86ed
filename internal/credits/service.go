package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/telemetry"
)

type store interface {
	// Ensure creates the balance with initial credits when absent.
	Ensure(ctx context.Context, userID string, initial int) (Balance, error)
	// Debit decrements atomically or fails with ErrInsufficientCredits.
	Debit(ctx context.Context, reservation Reservation) (Balance, error)
	// Refund credits a reservation back once; repeats are no-ops.
	Refund(ctx context.Context, reservation Reservation) (Balance, error)
	Add(ctx context.Context, userID string, n int, reason string) (Balance, error)
}

// Service is the credit gate in front of chargeable operations.
type Service struct {
	store       store
	freeCredits int
	now         func() time.Time
}

// NewService constructs a Service with an in-memory store.
func NewService(freeCredits int) *Service {
	return newService(newMemoryStore(), freeCredits)
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pg *PGStore, freeCredits int) *Service {
	return newService(pg, freeCredits)
}

func newService(s store, freeCredits int) *Service {
	if freeCredits < 0 {
		freeCredits = 0
	}
	return &Service{store: s, freeCredits: freeCredits, now: time.Now}
}

// Bootstrap creates the user's balance with the free allowance on first sight.
func (s *Service) Bootstrap(ctx context.Context, userID string) (Balance, error) {
	return s.store.Ensure(ctx, userID, s.freeCredits)
}

// Get returns the balance, bootstrapping unseen users.
func (s *Service) Get(ctx context.Context, userID string) (Balance, error) {
	return s.Bootstrap(ctx, userID)
}

// Reserve takes n credits up front. Callers must Refund when the operation fails.
func (s *Service) Reserve(ctx context.Context, userID string, n int) (Reservation, error) {
	if n <= 0 {
		return Reservation{}, ErrInvalidAmount
	}
	if _, err := s.Bootstrap(ctx, userID); err != nil {
		return Reservation{}, err
	}
	r := Reservation{ID: uuid.NewString(), UserID: userID, Amount: n, CreatedAt: s.now().UTC()}
	if _, err := s.store.Debit(ctx, r); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// Refund returns a reservation's credits. Refunding twice credits once.
func (s *Service) Refund(ctx context.Context, r Reservation) error {
	if r.ID == "" || r.Amount <= 0 {
		return ErrInvalidAmount
	}
	b, err := s.store.Refund(ctx, r)
	if err != nil {
		telemetry.Error("credits.refund_failed", map[string]any{
			"user_id":        r.UserID,
			"reservation_id": r.ID,
			"amount":         r.Amount,
			"error":          err,
		})
		return fmt.Errorf("refund reservation %s: %w", r.ID, err)
	}
	metrics.IncCreditRefunded()
	telemetry.Info("credits.refunded", map[string]any{
		"user_id":        r.UserID,
		"reservation_id": r.ID,
		"balance":        b.Credits,
	})
	return nil
}

// Grant adds n credits, e.g. after a pack purchase.
func (s *Service) Grant(ctx context.Context, userID string, n int, reason string) (Balance, error) {
	if n <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	if _, err := s.Bootstrap(ctx, userID); err != nil {
		return Balance{}, err
	}
	return s.store.Add(ctx, userID, n, reason)
}
