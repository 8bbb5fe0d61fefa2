package calculator

import (
	"time"

	"github.com/mmynk/tontine/internal/models"
)

const day = 24 * time.Hour

// RoundInfo is the round clock's point-in-time view of a tontine.
type RoundInfo struct {
	Round     int        `json:"current_round"`
	Deadline  *time.Time `json:"round_deadline"`
	DaysLeft  int        `json:"days_left"`
	IsOverdue bool       `json:"is_overdue"`
}

// RoundDeadline returns start_date + frequency_days × current_turn.
// It is nil unless the tontine is active.
func RoundDeadline(t *models.Tontine) *time.Time {
	if t.StartDate == nil || t.Status != models.StatusActive {
		return nil
	}
	turn := t.CurrentTurn
	if turn < 1 {
		turn = 1
	}
	deadline := t.StartDate.AddDate(0, 0, t.FrequencyDays*turn)
	return &deadline
}

// DaysLeft returns the whole days between now and the round deadline, truncated toward zero.
// Negative once the deadline has passed; 0 when there is no deadline.
func DaysLeft(t *models.Tontine, now time.Time) int {
	deadline := RoundDeadline(t)
	if deadline == nil {
		return 0
	}
	return int(deadline.Sub(now) / day)
}

// IsOverdue reports whether now is past the current round's deadline.
func IsOverdue(t *models.Tontine, now time.Time) bool {
	deadline := RoundDeadline(t)
	if deadline == nil {
		return false
	}
	return now.After(*deadline)
}

// Round bundles the round clock projections for t at now.
func Round(t *models.Tontine, now time.Time) RoundInfo {
	return RoundInfo{
		Round:     t.CurrentTurn,
		Deadline:  RoundDeadline(t),
		DaysLeft:  DaysLeft(t, now),
		IsOverdue: IsOverdue(t, now),
	}
}

// ElapsedRounds is the number of rounds members are expected to have paid for:
// none before the tontine starts, then every round up to the pointer.
func ElapsedRounds(t *models.Tontine) int {
	if t.StartDate == nil {
		return 0
	}
	return t.CurrentTurn
}
