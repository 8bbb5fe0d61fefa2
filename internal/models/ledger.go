package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one member's contribution for one round.
// (TontineID, UserID, RoundNumber) is unique.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID          string `json:"id"`
	TontineID   string `json:"tontine_id"`
	UserID      string `json:"user_id"`
	RoundNumber int    `json:"round_number"`

	// Amount is the tontine's contribution at the time the payment was recorded.
	Amount decimal.Decimal `json:"amount"`

	PaidAt time.Time `json:"paid_at"`

	// RecordedBy is the admin who recorded this payment.
	RecordedBy string `json:"recorded_by"`
}

// PenaltyStatus is the settlement state of a penalty.
type PenaltyStatus string

const (
	PenaltyUnpaid PenaltyStatus = "unpaid"
	PenaltyPaid   PenaltyStatus = "paid"
)

// Penalty is a fine applied to a member for a round. Several penalties may exist for the same
// member and round.
type Penalty struct {
	ID          string          `json:"id"`
	TontineID   string          `json:"tontine_id"`
	UserID      string          `json:"user_id"`
	RoundNumber int             `json:"round_number"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PenaltyStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	PaidAt      *time.Time      `json:"paid_at"`
}
