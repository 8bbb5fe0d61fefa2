package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/models"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeTontine(turn int) *models.Tontine {
	s := start
	return &models.Tontine{
		ID:            "t1",
		Amount:        decimal.NewFromInt(1000),
		FrequencyDays: 30,
		StartDate:     &s,
		Status:        models.StatusActive,
		CurrentTurn:   turn,
	}
}

func TestRoundDeadline(t *testing.T) {
	tests := []struct {
		name    string
		tontine *models.Tontine
		want    *time.Time
	}{
		{
			name:    "pending has no deadline",
			tontine: &models.Tontine{Status: models.StatusPending, FrequencyDays: 30, CurrentTurn: 1},
			want:    nil,
		},
		{
			name:    "first round ends one period after start",
			tontine: activeTontine(1),
			want:    ptr(start.AddDate(0, 0, 30)),
		},
		{
			name:    "third round ends three periods after start",
			tontine: activeTontine(3),
			want:    ptr(start.AddDate(0, 0, 90)),
		},
		{
			name: "completed has no deadline",
			tontine: func() *models.Tontine {
				tt := activeTontine(3)
				tt.Status = models.StatusCompleted
				return tt
			}(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundDeadline(tt.tontine)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("RoundDeadline = %v, want nil", *got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("RoundDeadline = %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestDaysLeftAndOverdue(t *testing.T) {
	tontine := activeTontine(1)
	deadline := start.AddDate(0, 0, 30)

	tests := []struct {
		name        string
		now         time.Time
		wantDays    int
		wantOverdue bool
	}{
		{"on start day", start, 30, false},
		{"partial day truncates", deadline.Add(-36 * time.Hour), 1, false},
		{"exactly at deadline", deadline, 0, false},
		{"one second late", deadline.Add(time.Second), 0, true},
		{"two days late", deadline.Add(48 * time.Hour), -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysLeft(tontine, tt.now); got != tt.wantDays {
				t.Errorf("DaysLeft = %d, want %d", got, tt.wantDays)
			}
			if got := IsOverdue(tontine, tt.now); got != tt.wantOverdue {
				t.Errorf("IsOverdue = %v, want %v", got, tt.wantOverdue)
			}
		})
	}
}

func TestRoundPending(t *testing.T) {
	tontine := &models.Tontine{Status: models.StatusPending, FrequencyDays: 7, CurrentTurn: 1}

	info := Round(tontine, start.AddDate(1, 0, 0))
	if info.Round != 1 || info.Deadline != nil || info.DaysLeft != 0 || info.IsOverdue {
		t.Errorf("Unexpected round info for pending tontine: %+v", info)
	}
	if got := ElapsedRounds(tontine); got != 0 {
		t.Errorf("ElapsedRounds = %d, want 0 before start", got)
	}
	if got := ElapsedRounds(activeTontine(3)); got != 3 {
		t.Errorf("ElapsedRounds = %d, want 3", got)
	}
}

func ptr[T any](v T) *T { return &v }
