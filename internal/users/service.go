package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resumegen-api/internal/credits"
	"resumegen-api/internal/shared/telemetry"
)

// CreditBalances reads a balance, granting the free allotment on first sight.
type CreditBalances interface {
	Get(ctx context.Context, userID string) (credits.Balance, error)
}

type Service struct {
	Repo    Repo
	Credits CreditBalances
}

func NewService(repo Repo, balances CreditBalances) *Service {
	return &Service{Repo: repo, Credits: balances}
}

// RecordSignIn stores the identity returned by an OAuth provider so resume and
// credit ownership stay attached to a stable id.
func (s *Service) RecordSignIn(ctx context.Context, user User) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return User{}, errors.New("user id and email are required")
	}
	user.Provider = ProviderOf(user.ID)
	return s.Repo.RecordSignIn(ctx, user)
}

// Me resolves the caller's profile. A signed-in caller the store has never
// seen is recorded from the token claims; the stored row wins afterwards. The
// credit lookup bootstraps the free balance for users and guests alike.
func (s *Service) Me(ctx context.Context, id Identity) (Profile, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return Profile{}, errors.New("user id is required")
	}
	profile := Profile{ID: id.UserID, IsGuest: id.IsGuest}

	if !id.IsGuest {
		user, created, err := s.Repo.EnsureUser(ctx, id.user())
		if err != nil {
			return Profile{}, fmt.Errorf("record user: %w", err)
		}
		if created {
			telemetry.Info("users.first_seen", map[string]any{
				"user_id":  user.ID,
				"provider": user.Provider,
			})
		}
		profile.Email = user.Email
		profile.FullName = user.FullName
		profile.PictureURL = user.PictureURL
	}

	balance, err := s.Credits.Get(ctx, id.UserID)
	if err != nil {
		return Profile{}, fmt.Errorf("load credits: %w", err)
	}
	profile.Credits = balance.Credits
	profile.LastUpdated = balance.UpdatedAt
	return profile, nil
}
