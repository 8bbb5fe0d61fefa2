package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCountryCode is assigned to users who register without one.
const DefaultCountryCode = "+228"

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Phone is the user's phone number in international format (unique).
	// Used for login and for being added to a tontine.
	Phone string `json:"phone"`

	CountryCode string `json:"country_code"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with a generated ID and timestamps.
func NewUser(name, phone, passwordHash string, now time.Time) *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Phone:        phone,
		CountryCode:  DefaultCountryCode,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Contact is the public view of another user sharing a tontine with the caller.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
