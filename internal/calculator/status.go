package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/models"
)

// MemberPaymentStatus is one member's state for the current round.
type MemberPaymentStatus struct {
	UserID    string `json:"id"`
	Name      string `json:"name"`
	TurnOrder *int   `json:"turn_order"`
	HasPaid   bool   `json:"has_paid"`
	IsLate    bool   `json:"is_late"`
}

// Beneficiary identifies the member collecting the pot.
type Beneficiary struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// PaymentStatus is the point-in-time view of the current round.
type PaymentStatus struct {
	TontineID string        `json:"id"`
	Status    models.Status `json:"status"`
	RoundInfo
	PotTotal    decimal.Decimal       `json:"pot_total"`
	Beneficiary *Beneficiary          `json:"beneficiary"`
	Members     []MemberPaymentStatus `json:"members"`
}

// Debtor is a member with at least one elapsed round lacking a payment.
type Debtor struct {
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	MissedRounds    []int           `json:"missed_rounds"`
	TotalDebt       decimal.Decimal `json:"total_debt"`
	UnpaidPenalties decimal.Decimal `json:"unpaid_penalties"`
}

// FindBeneficiary returns the member whose turn order equals round, or nil.
func FindBeneficiary(members []*models.Member, round int) *models.Member {
	for _, m := range members {
		if m.TurnOrder != nil && *m.TurnOrder == round {
			return m
		}
	}
	return nil
}

type paymentKey struct {
	userID string
	round  int
}

func indexPayments(payments []*models.Payment) map[paymentKey]bool {
	paid := make(map[paymentKey]bool, len(payments))
	for _, p := range payments {
		paid[paymentKey{p.UserID, p.RoundNumber}] = true
	}
	return paid
}

// BuildPaymentStatus composes the current round's status from the tontine, its members and the
// payments recorded so far.
func BuildPaymentStatus(t *models.Tontine, members []*models.Member, payments []*models.Payment, now time.Time) PaymentStatus {
	info := Round(t, now)
	paid := indexPayments(payments)

	status := PaymentStatus{
		TontineID: t.ID,
		Status:    t.Status,
		RoundInfo: info,
		PotTotal:  t.Pot(len(members)),
		Members:   make([]MemberPaymentStatus, 0, len(members)),
	}

	if b := FindBeneficiary(members, info.Round); b != nil {
		status.Beneficiary = &Beneficiary{UserID: b.UserID, Name: b.Name, Phone: b.Phone}
	}

	for _, m := range members {
		hasPaid := paid[paymentKey{m.UserID, info.Round}]
		status.Members = append(status.Members, MemberPaymentStatus{
			UserID:    m.UserID,
			Name:      m.Name,
			TurnOrder: m.TurnOrder,
			HasPaid:   hasPaid,
			IsLate:    !hasPaid && info.IsOverdue,
		})
	}
	return status
}

// FindDebtors scans every elapsed round for every member and reports the rounds without a payment.
// Members with no missed round are omitted.
func FindDebtors(t *models.Tontine, members []*models.Member, payments []*models.Payment, penalties []*models.Penalty) []Debtor {
	paid := indexPayments(payments)
	rounds := ElapsedRounds(t)

	unpaidPenalties := make(map[string]decimal.Decimal)
	for _, p := range penalties {
		if p.Status != models.PenaltyUnpaid {
			continue
		}
		unpaidPenalties[p.UserID] = unpaidPenalties[p.UserID].Add(p.Amount)
	}

	debtors := []Debtor{}
	for _, m := range members {
		var missed []int
		for r := 1; r <= rounds; r++ {
			if !paid[paymentKey{m.UserID, r}] {
				missed = append(missed, r)
			}
		}
		if len(missed) == 0 {
			continue
		}
		debtors = append(debtors, Debtor{
			UserID:          m.UserID,
			Name:            m.Name,
			MissedRounds:    missed,
			TotalDebt:       t.Amount.Mul(decimal.NewFromInt(int64(len(missed)))),
			UnpaidPenalties: unpaidPenalties[m.UserID],
		})
	}
	return debtors
}

// GroupSnapshot carries what the dashboard needs about one active tontine.
type GroupSnapshot struct {
	Tontine     *models.Tontine
	MemberCount int
	// PaidThisRound is the sum of payments recorded for the current round.
	PaidThisRound decimal.Decimal
}

// DashboardStats aggregates the current round across a user's active tontines.
type DashboardStats struct {
	TotalExpected  decimal.Decimal   `json:"total_expected"`
	TotalPaid      decimal.Decimal   `json:"total_paid"`
	TotalToCollect decimal.Decimal   `json:"total_to_collect"`
	RecoveryRate   int64             `json:"recovery_rate"`
	LateAlerts     int               `json:"late_alerts"`
	ActiveGroups   []*models.Tontine `json:"active_groups"`
}

// maxDashboardGroups is the number of recent groups listed on the dashboard.
const maxDashboardGroups = 5

var hundred = decimal.NewFromInt(100)

// BuildDashboard sums expected and paid amounts for each group's current round.
func BuildDashboard(groups []GroupSnapshot, now time.Time) DashboardStats {
	stats := DashboardStats{ActiveGroups: []*models.Tontine{}}

	for _, g := range groups {
		expected := g.Tontine.Pot(g.MemberCount)
		stats.TotalExpected = stats.TotalExpected.Add(expected)
		stats.TotalPaid = stats.TotalPaid.Add(g.PaidThisRound)

		if IsOverdue(g.Tontine, now) && g.PaidThisRound.LessThan(expected) {
			stats.LateAlerts++
		}
	}

	stats.TotalToCollect = stats.TotalExpected.Sub(stats.TotalPaid)
	if stats.TotalExpected.IsPositive() {
		stats.RecoveryRate = stats.TotalPaid.Div(stats.TotalExpected).Mul(hundred).Round(0).IntPart()
	}

	recent := make([]*models.Tontine, 0, len(groups))
	for _, g := range groups {
		recent = append(recent, g.Tontine)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > maxDashboardGroups {
		recent = recent[:maxDashboardGroups]
	}
	stats.ActiveGroups = recent
	return stats
}
