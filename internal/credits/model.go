package credits

import (
	"errors"
	"time"
)

// GenerationCost is the number of credits one generation consumes.
const GenerationCost = 1

// DefaultFreeCredits is granted once when an account is first seen.
const DefaultFreeCredits = 3

var (
	// ErrInsufficientCredits is returned by Reserve when the balance is too low.
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("credit amount must be positive")
	ErrUnknownPack         = errors.New("unknown credit pack")
)

// Balance is a user's spendable credit count.
type Balance struct {
	UserID    string    `json:"-"`
	Credits   int       `json:"credits"`
	UpdatedAt time.Time `json:"lastUpdated"`
}

// Reservation records credits taken ahead of a chargeable operation.
// Refunding it returns exactly Amount, at most once.
type Reservation struct {
	ID        string
	UserID    string
	Amount    int
	CreatedAt time.Time
}
