package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/tontine/internal/models"
)

// AppendActivity adds an entry to the activity log. Entries are never updated or deleted.
func (q *queries) AppendActivity(ctx context.Context, e *models.ActivityEntry) error {
	var userID sql.NullString
	if e.UserID != nil {
		userID = sql.NullString{String: *e.UserID, Valid: true}
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, tontine_id, user_id, type, amount, round_number, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TontineID, userID, string(e.Type), e.Amount, nullInt(e.RoundNumber), e.Description,
		toUnix(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// ListActivity returns a tontine's history, newest first, with the concerned user's name.
func (q *queries) ListActivity(ctx context.Context, tontineID string) ([]*models.ActivityEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.tontine_id, a.user_id, COALESCE(u.name, ''), a.type, a.amount, a.round_number,
		       a.description, a.created_at
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.tontine_id = ?
		ORDER BY a.created_at DESC, a.rowid DESC
	`, tontineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []*models.ActivityEntry{}
	for rows.Next() {
		e := &models.ActivityEntry{}
		var (
			userID    sql.NullString
			typ       string
			round     sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.TontineID, &userID, &e.UserName, &typ, &e.Amount, &round,
			&e.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if userID.Valid {
			e.UserID = &userID.String
		}
		e.Type = models.ActivityType(typ)
		e.RoundNumber = intPtr(round)
		e.CreatedAt = fromUnix(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return entries, nil
}
