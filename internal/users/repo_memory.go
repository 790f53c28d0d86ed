package users

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]User
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User), now: time.Now}
}

func (r *MemoryRepo) RecordSignIn(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.LastSeenAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepo) EnsureUser(ctx context.Context, user User) (User, bool, error) {
	if err := ctx.Err(); err != nil {
		return User{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.ID]; ok {
		return existing, false, nil
	}
	now := r.now().UTC()
	user.CreatedAt = now
	user.LastSeenAt = now
	r.users[user.ID] = user
	return user, true, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}
