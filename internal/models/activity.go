package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType classifies a history entry.
type ActivityType string

const (
	ActivityStart   ActivityType = "start"
	ActivityPayment ActivityType = "payment"
	ActivityPayout  ActivityType = "payout"
	ActivityPenalty ActivityType = "penalty"
	ActivityInfo    ActivityType = "info"
)

// ActivityEntry is an append-only history line for a tontine.
type ActivityEntry struct {
	ID        string `json:"id"`
	TontineID string `json:"tontine_id"`

	// UserID is the member concerned by the event, if any.
	UserID *string `json:"user_id"`

	// UserName is filled on read for display.
	UserName string `json:"user_name,omitempty"`

	Type        ActivityType    `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	RoundNumber *int            `json:"round_number"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
