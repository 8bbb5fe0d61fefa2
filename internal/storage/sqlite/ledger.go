package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// CreatePayment persists a payment. A second payment for the same member and round violates the
// unique index and is reported as storage.ErrConflict.
func (q *queries) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO payments (id, tontine_id, user_id, round_number, amount, paid_at, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TontineID, p.UserID, p.RoundNumber, p.Amount, toUnix(p.PaidAt), p.RecordedBy,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment for round %d already recorded: %w", p.RoundNumber, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// PaymentExists reports whether the member already paid for the round.
func (q *queries) PaymentExists(ctx context.Context, tontineID, userID string, round int) (bool, error) {
	var exists int
	err := q.db.QueryRowContext(ctx,
		"SELECT 1 FROM payments WHERE tontine_id = ? AND user_id = ? AND round_number = ?",
		tontineID, userID, round,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}
	return true, nil
}

func (q *queries) listPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p := &models.Payment{}
		var paidAt int64
		if err := rows.Scan(&p.ID, &p.TontineID, &p.UserID, &p.RoundNumber, &p.Amount, &paidAt,
			&p.RecordedBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.PaidAt = fromUnix(paidAt)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// ListPayments retrieves every payment of a tontine ordered by round.
func (q *queries) ListPayments(ctx context.Context, tontineID string) ([]*models.Payment, error) {
	return q.listPayments(ctx,
		`SELECT id, tontine_id, user_id, round_number, amount, paid_at, recorded_by
		 FROM payments WHERE tontine_id = ? ORDER BY round_number, paid_at`,
		tontineID)
}

// ListRoundPayments retrieves the payments recorded for one round.
func (q *queries) ListRoundPayments(ctx context.Context, tontineID string, round int) ([]*models.Payment, error) {
	return q.listPayments(ctx,
		`SELECT id, tontine_id, user_id, round_number, amount, paid_at, recorded_by
		 FROM payments WHERE tontine_id = ? AND round_number = ? ORDER BY paid_at`,
		tontineID, round)
}

// SumRoundPayments adds up the amounts paid for one round. Amounts are summed as decimals, not
// with SQL SUM, which would go through floating point.
func (q *queries) SumRoundPayments(ctx context.Context, tontineID string, round int) (decimal.Decimal, error) {
	payments, err := q.ListRoundPayments(ctx, tontineID, round)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// CreatePenalty persists a penalty.
func (q *queries) CreatePenalty(ctx context.Context, p *models.Penalty) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO penalties (id, tontine_id, user_id, round_number, amount, status, created_at, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TontineID, p.UserID, p.RoundNumber, p.Amount, string(p.Status),
		toUnix(p.CreatedAt), nullTime(p.PaidAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert penalty: %w", err)
	}
	return nil
}

func scanPenalty(row interface{ Scan(...any) error }) (*models.Penalty, error) {
	p := &models.Penalty{}
	var (
		status    string
		createdAt int64
		paidAt    sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.TontineID, &p.UserID, &p.RoundNumber, &p.Amount, &status,
		&createdAt, &paidAt); err != nil {
		return nil, err
	}
	p.Status = models.PenaltyStatus(status)
	p.CreatedAt = fromUnix(createdAt)
	p.PaidAt = timePtr(paidAt)
	return p, nil
}

// GetPenalty retrieves a penalty by ID.
func (q *queries) GetPenalty(ctx context.Context, id string) (*models.Penalty, error) {
	p, err := scanPenalty(q.db.QueryRowContext(ctx,
		`SELECT id, tontine_id, user_id, round_number, amount, status, created_at, paid_at
		 FROM penalties WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("penalty %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get penalty: %w", err)
	}
	return p, nil
}

// UpdatePenalty writes back a penalty's status and payment time.
func (q *queries) UpdatePenalty(ctx context.Context, p *models.Penalty) error {
	result, err := q.db.ExecContext(ctx,
		"UPDATE penalties SET status = ?, paid_at = ? WHERE id = ?",
		string(p.Status), nullTime(p.PaidAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update penalty: %w", err)
	}
	return expectOneRow(result, "penalty", p.ID)
}

// ListPenalties retrieves every penalty of a tontine.
func (q *queries) ListPenalties(ctx context.Context, tontineID string) ([]*models.Penalty, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, tontine_id, user_id, round_number, amount, status, created_at, paid_at
		 FROM penalties WHERE tontine_id = ? ORDER BY created_at, rowid`, tontineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list penalties: %w", err)
	}
	defer rows.Close()

	penalties := []*models.Penalty{}
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan penalty: %w", err)
		}
		penalties = append(penalties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate penalties: %w", err)
	}
	return penalties, nil
}
