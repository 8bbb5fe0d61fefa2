package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

const tontineColumns = `id, name, amount, frequency_days, late_fee, start_date, creator_id,
	status, order_type, order_locked, current_turn, created_at, updated_at`

// CreateTontine persists a new tontine.
func (q *queries) CreateTontine(ctx context.Context, t *models.Tontine) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO tontines (`+tontineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Amount, t.FrequencyDays, t.LateFee, nullTime(t.StartDate), t.CreatorID,
		string(t.Status), string(t.OrderType), t.OrderLocked, t.CurrentTurn,
		toUnix(t.CreatedAt), toUnix(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tontine: %w", err)
	}
	return nil
}

func scanTontine(row interface{ Scan(...any) error }) (*models.Tontine, error) {
	t := &models.Tontine{}
	var (
		startDate            sql.NullInt64
		status, orderType    string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&t.ID, &t.Name, &t.Amount, &t.FrequencyDays, &t.LateFee, &startDate, &t.CreatorID,
		&status, &orderType, &t.OrderLocked, &t.CurrentTurn, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	t.StartDate = timePtr(startDate)
	t.Status = models.Status(status)
	t.OrderType = models.OrderType(orderType)
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return t, nil
}

// GetTontine retrieves a tontine by ID.
func (q *queries) GetTontine(ctx context.Context, id string) (*models.Tontine, error) {
	t, err := scanTontine(q.db.QueryRowContext(ctx,
		`SELECT `+tontineColumns+` FROM tontines WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tontine %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tontine: %w", err)
	}
	return t, nil
}

// UpdateTontine writes back every mutable column of t.
func (q *queries) UpdateTontine(ctx context.Context, t *models.Tontine) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tontines
		SET name = ?, amount = ?, frequency_days = ?, late_fee = ?, start_date = ?, creator_id = ?,
		    status = ?, order_type = ?, order_locked = ?, current_turn = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Amount, t.FrequencyDays, t.LateFee, nullTime(t.StartDate), t.CreatorID,
		string(t.Status), string(t.OrderType), t.OrderLocked, t.CurrentTurn, toUnix(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tontine: %w", err)
	}
	return expectOneRow(result, "tontine", t.ID)
}

// DeleteTontine removes a tontine. Members, payments and penalties cascade.
func (q *queries) DeleteTontine(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, "DELETE FROM tontines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tontine: %w", err)
	}
	return expectOneRow(result, "tontine", id)
}

// ListTontinesForUser lists the tontines a user belongs to, newest first.
func (q *queries) ListTontinesForUser(ctx context.Context, userID string, status models.Status) ([]*models.Tontine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.amount, t.frequency_days, t.late_fee, t.start_date, t.creator_id,
		       t.status, t.order_type, t.order_locked, t.current_turn, t.created_at, t.updated_at
		FROM tontines t
		JOIN tontine_members m ON m.tontine_id = t.id
		WHERE m.user_id = ? AND (? = '' OR t.status = ?)
		ORDER BY t.created_at DESC, t.rowid DESC
	`, userID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list tontines: %w", err)
	}
	defer rows.Close()

	tontines := []*models.Tontine{}
	for rows.Next() {
		t, err := scanTontine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tontine: %w", err)
		}
		tontines = append(tontines, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tontines: %w", err)
	}
	return tontines, nil
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
