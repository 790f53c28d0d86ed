package users

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/credits"
	"resumegen-api/internal/shared/telemetry"
)

func TestMeRecordsFirstSightAndBootstrapsCredits(t *testing.T) {
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo, credits.NewService(3))

	profile, err := svc.Me(ctx, Identity{UserID: "google:1", Email: "jane@example.com", Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "google:1", profile.ID)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.False(t, profile.IsGuest)
	assert.Equal(t, 3, profile.Credits)

	stored, err := repo.Get(ctx, "google:1")
	require.NoError(t, err)
	assert.Equal(t, "google", stored.Provider)
	assert.Contains(t, buf.String(), "users.first_seen")

	buf.Reset()
	_, err = svc.Me(ctx, Identity{UserID: "google:1", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "users.first_seen")
}

func TestMePrefersStoredProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	balances := credits.NewService(3)
	svc := NewService(repo, balances)

	_, err := svc.RecordSignIn(ctx, User{ID: "google:1", Email: "jane@corp.example", FullName: "Jane Q. Doe"})
	require.NoError(t, err)
	_, err = balances.Grant(ctx, "google:1", 15, "pack:popular")
	require.NoError(t, err)

	profile, err := svc.Me(ctx, Identity{UserID: "google:1", Email: "stale@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane@corp.example", profile.Email)
	assert.Equal(t, "Jane Q. Doe", profile.FullName)
	assert.Equal(t, 18, profile.Credits)
}

func TestMeForGuestSkipsUserRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo, credits.NewService(2))

	profile, err := svc.Me(ctx, Identity{UserID: "guest:g1", IsGuest: true})
	require.NoError(t, err)
	assert.True(t, profile.IsGuest)
	assert.Equal(t, 2, profile.Credits)

	_, err = repo.Get(ctx, "guest:g1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Me(ctx, Identity{})
	assert.Error(t, err)
}

func TestRecordSignInRefreshesProfileKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo, credits.NewService(0))

	_, err := svc.RecordSignIn(ctx, User{ID: "google:1"})
	assert.Error(t, err)

	first, err := svc.RecordSignIn(ctx, User{ID: "google:1", Email: "jane@example.com", FullName: "Jane"})
	require.NoError(t, err)
	second, err := svc.RecordSignIn(ctx, User{ID: "google:1", Email: "jane@example.com", FullName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "Jane Doe", second.FullName)
	assert.Equal(t, "google", second.Provider)
}

func TestProviderOf(t *testing.T) {
	assert.Equal(t, "google", ProviderOf("google:42"))
	assert.Equal(t, "guest", ProviderOf("guest:abc"))
	assert.Equal(t, "unknown", ProviderOf("plain"))
	assert.Equal(t, "unknown", ProviderOf(":x"))
}
