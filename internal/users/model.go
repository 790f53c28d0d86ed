package users

import (
	"strings"
	"time"
)

// User is a signed-in account. Guests never get a row.
type User struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Email      string    `json:"email,omitempty"`
	FullName   string    `json:"fullName,omitempty"`
	PictureURL string    `json:"pictureUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// ProviderOf returns the prefix of a "<provider>:<subject>" user id.
func ProviderOf(userID string) string {
	provider, _, ok := strings.Cut(userID, ":")
	if !ok || provider == "" {
		return "unknown"
	}
	return provider
}

// Identity is what the auth layer knows about the caller.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
	IsGuest bool
}

func (id Identity) user() User {
	return User{
		ID:         id.UserID,
		Provider:   ProviderOf(id.UserID),
		Email:      id.Email,
		FullName:   id.Name,
		PictureURL: id.Picture,
	}
}

// Profile is the /me payload.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	FullName    string    `json:"fullName,omitempty"`
	PictureURL  string    `json:"pictureUrl,omitempty"`
	IsGuest     bool      `json:"isGuest"`
	Credits     int       `json:"credits"`
	LastUpdated time.Time `json:"lastUpdated"`
}
