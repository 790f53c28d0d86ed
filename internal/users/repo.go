package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// Repo stores signed-in users.
type Repo interface {
	// RecordSignIn inserts or refreshes the profile fields and bumps last_seen_at.
	RecordSignIn(ctx context.Context, user User) (User, error)
	// EnsureUser inserts user only if the id is unseen. It returns the stored
	// row and whether this call created it; an existing row is left untouched.
	EnsureUser(ctx context.Context, user User) (User, bool, error)
	Get(ctx context.Context, userID string) (User, error)
}
