package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, provider, email, full_name, picture_url, created_at, last_seen_at`

func (r *PGRepo) RecordSignIn(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, provider, email, full_name, picture_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  email = COALESCE(EXCLUDED.email, users.email),
  full_name = COALESCE(EXCLUDED.full_name, users.full_name),
  picture_url = COALESCE(EXCLUDED.picture_url, users.picture_url),
  last_seen_at = now()
RETURNING ` + userColumns
	return scanUser(r.DB.QueryRowContext(ctx, query, insertArgs(user)...))
}

// EnsureUser relies on the CTE snapshot: when the insert conflicts, the
// second branch still sees the pre-existing row.
func (r *PGRepo) EnsureUser(ctx context.Context, user User) (User, bool, error) {
	const query = `
WITH inserted AS (
  INSERT INTO users (id, provider, email, full_name, picture_url)
  VALUES ($1, $2, $3, $4, $5)
  ON CONFLICT (id) DO NOTHING
  RETURNING ` + userColumns + `
)
SELECT ` + userColumns + `, true FROM inserted
UNION ALL
SELECT ` + userColumns + `, false FROM users
WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM inserted)`
	var created bool
	stored, err := scanUser(r.DB.QueryRowContext(ctx, query, insertArgs(user)...), &created)
	if err != nil {
		return User{}, false, err
	}
	return stored, created, nil
}

func (r *PGRepo) Get(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func insertArgs(user User) []any {
	return []any{
		user.ID,
		user.Provider,
		nullableString(user.Email),
		nullableString(user.FullName),
		nullableString(user.PictureURL),
	}
}

func scanUser(row *sql.Row, extra ...any) (User, error) {
	var (
		user                     User
		email, fullName, picture sql.NullString
	)
	dest := append([]any{&user.ID, &user.Provider, &email, &fullName, &picture, &user.CreatedAt, &user.LastSeenAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Email = email.String
	user.FullName = fullName.String
	user.PictureURL = picture.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
