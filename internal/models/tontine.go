package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a tontine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OrderType records how the turn order was produced.
type OrderType string

const (
	OrderNotDefined OrderType = "not_defined"
	OrderManual     OrderType = "manual"
	OrderRandom     OrderType = "random"
)

// Tontine is a rotating savings group. Every round each member contributes Amount and the member
// whose turn order equals the round collects the pot.
type Tontine struct {
	// ID is the unique identifier for the tontine (UUID format).
	ID   string `json:"id"`
	Name string `json:"name"`

	// Amount is the fixed contribution per member per round.
	Amount decimal.Decimal `json:"amount"`

	// FrequencyDays is the length of a round in days.
	FrequencyDays int `json:"frequency_days"`

	// LateFee is the default penalty amount.
	LateFee decimal.Decimal `json:"late_fee"`

	// StartDate is set once, when the tontine is started.
	StartDate *time.Time `json:"start_date"`

	// CreatorID is the admin of the tontine.
	CreatorID string `json:"creator_id"`

	Status      Status    `json:"status"`
	OrderType   OrderType `json:"order_type"`
	OrderLocked bool      `json:"order_locked"`

	// CurrentTurn is the authoritative round pointer. It starts at 1 and only moves
	// forward when a round is closed.
	CurrentTurn int `json:"current_turn"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pot is the amount collected in one round.
func (t *Tontine) Pot(memberCount int) decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(memberCount)))
}
