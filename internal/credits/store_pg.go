package credits

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	ledgerDebit  = "debit"
	ledgerRefund = "refund"
	ledgerGrant  = "grant"
)

// PGStore keeps balances in credit_balances and every movement in credit_ledger.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed credit store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Ensure(ctx context.Context, userID string, initial int) (Balance, error) {
	now := time.Now().UTC()
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO credit_balances (user_id, credits, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`, userID, initial, now); err != nil {
		return Balance{}, err
	}
	b := Balance{UserID: userID}
	err := s.DB.QueryRowContext(ctx, `
SELECT credits, updated_at FROM credit_balances WHERE user_id = $1`, userID).Scan(&b.Credits, &b.UpdatedAt)
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *PGStore) Debit(ctx context.Context, r Reservation) (b Balance, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	b = Balance{UserID: r.UserID}
	err = tx.QueryRowContext(ctx, `
SELECT credits FROM credit_balances WHERE user_id = $1 FOR UPDATE`, r.UserID).Scan(&b.Credits)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrInsufficientCredits
		return Balance{}, err
	}
	if err != nil {
		return Balance{}, err
	}
	if b.Credits < r.Amount {
		err = ErrInsufficientCredits
		return Balance{}, err
	}

	b.UpdatedAt = time.Now().UTC()
	b.Credits -= r.Amount
	if _, err = tx.ExecContext(ctx, `
UPDATE credit_balances SET credits = $1, updated_at = $2 WHERE user_id = $3`, b.Credits, b.UpdatedAt, r.UserID); err != nil {
		return Balance{}, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO credit_ledger (id, user_id, reservation_id, kind, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, uuid.NewString(), r.UserID, r.ID, ledgerDebit, -r.Amount, b.UpdatedAt); err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *PGStore) Refund(ctx context.Context, r Reservation) (b Balance, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
INSERT INTO credit_ledger (id, user_id, reservation_id, kind, amount, created_at)
SELECT $1::uuid, $2::text, $3::text, $4::text, $5::int, $6::timestamptz
WHERE EXISTS (SELECT 1 FROM credit_ledger WHERE reservation_id = $3::text AND kind = 'debit')
ON CONFLICT (reservation_id, kind) DO NOTHING`, uuid.NewString(), r.UserID, r.ID, ledgerRefund, r.Amount, now)
	if err != nil {
		return Balance{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Balance{}, err
	}

	b = Balance{UserID: r.UserID}
	if n == 0 {
		err = tx.QueryRowContext(ctx, `
SELECT credits, updated_at FROM credit_balances WHERE user_id = $1`, r.UserID).Scan(&b.Credits, &b.UpdatedAt)
	} else {
		err = tx.QueryRowContext(ctx, `
UPDATE credit_balances SET credits = credits + $1, updated_at = $2
WHERE user_id = $3
RETURNING credits, updated_at`, r.Amount, now, r.UserID).Scan(&b.Credits, &b.UpdatedAt)
	}
	if err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *PGStore) Add(ctx context.Context, userID string, n int, reason string) (b Balance, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	b = Balance{UserID: userID}
	if err = tx.QueryRowContext(ctx, `
UPDATE credit_balances SET credits = credits + $1, updated_at = $2
WHERE user_id = $3
RETURNING credits, updated_at`, n, now, userID).Scan(&b.Credits, &b.UpdatedAt); err != nil {
		return Balance{}, err
	}
	if reason == "" {
		reason = ledgerGrant
	}
	grantID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
INSERT INTO credit_ledger (id, user_id, reservation_id, kind, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, grantID, userID, grantID, reason, n, now); err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}
