package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// AddMember attaches a user to a tontine.
func (q *queries) AddMember(ctx context.Context, m *models.Membership) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tontine_members (tontine_id, user_id, role, status, turn_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.TontineID, m.UserID, string(m.Role), string(m.Status), nullInt(m.TurnOrder),
		toUnix(m.CreatedAt), toUnix(m.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s already in tontine %s: %w", m.UserID, m.TontineID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMembership retrieves one user's membership in a tontine.
func (q *queries) GetMembership(ctx context.Context, tontineID, userID string) (*models.Membership, error) {
	m := &models.Membership{}
	var (
		role, status         string
		turn                 sql.NullInt64
		createdAt, updatedAt int64
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT tontine_id, user_id, role, status, turn_order, created_at, updated_at
		FROM tontine_members WHERE tontine_id = ? AND user_id = ?`,
		tontineID, userID,
	).Scan(&m.TontineID, &m.UserID, &role, &status, &turn, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("membership %s/%s: %w", tontineID, userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.Role = models.Role(role)
	m.Status = models.MemberStatus(status)
	m.TurnOrder = intPtr(turn)
	m.CreatedAt = fromUnix(createdAt)
	m.UpdatedAt = fromUnix(updatedAt)
	return m, nil
}

// ListMembers returns the tontine's members joined with their user record.
func (q *queries) ListMembers(ctx context.Context, tontineID string) ([]*models.Member, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.tontine_id, m.user_id, m.role, m.status, m.turn_order, m.created_at, m.updated_at,
		       u.name, u.phone
		FROM tontine_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.tontine_id = ?
		ORDER BY m.turn_order IS NULL, m.turn_order, m.created_at, m.rowid
	`, tontineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*models.Member{}
	for rows.Next() {
		m := &models.Member{}
		var (
			role, status         string
			turn                 sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&m.TontineID, &m.UserID, &role, &status, &turn, &createdAt, &updatedAt,
			&m.Name, &m.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = models.Role(role)
		m.Status = models.MemberStatus(status)
		m.TurnOrder = intPtr(turn)
		m.CreatedAt = fromUnix(createdAt)
		m.UpdatedAt = fromUnix(updatedAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// CountMembers returns the number of members in a tontine.
func (q *queries) CountMembers(ctx context.Context, tontineID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tontine_members WHERE tontine_id = ?", tontineID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// UpdateMember writes back a membership's role, status and turn order.
func (q *queries) UpdateMember(ctx context.Context, m *models.Membership) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tontine_members SET role = ?, status = ?, turn_order = ?, updated_at = ?
		WHERE tontine_id = ? AND user_id = ?`,
		string(m.Role), string(m.Status), nullInt(m.TurnOrder), toUnix(m.UpdatedAt),
		m.TontineID, m.UserID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("turn order already taken in tontine %s: %w", m.TontineID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return expectOneRow(result, "membership", m.TontineID+"/"+m.UserID)
}

// SetTurnOrders replaces the tontine's turn order. Existing assignments are cleared first so the
// unique (tontine_id, turn_order) index never sees a transient duplicate.
func (q *queries) SetTurnOrders(ctx context.Context, tontineID string, order map[string]int, now time.Time) error {
	stamp := toUnix(now)
	if _, err := q.db.ExecContext(ctx,
		"UPDATE tontine_members SET turn_order = NULL, updated_at = ? WHERE tontine_id = ?",
		stamp, tontineID); err != nil {
		return fmt.Errorf("failed to clear turn order: %w", err)
	}

	for userID, turn := range order {
		result, err := q.db.ExecContext(ctx,
			"UPDATE tontine_members SET turn_order = ?, updated_at = ? WHERE tontine_id = ? AND user_id = ?",
			turn, stamp, tontineID, userID)
		if isUniqueViolation(err) {
			return fmt.Errorf("turn %d assigned twice: %w", turn, storage.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to set turn order: %w", err)
		}
		if err := expectOneRow(result, "membership", tontineID+"/"+userID); err != nil {
			return err
		}
	}
	return nil
}

// ActivateMembers marks every membership of the tontine active.
func (q *queries) ActivateMembers(ctx context.Context, tontineID string, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE tontine_members SET status = ?, updated_at = ? WHERE tontine_id = ?",
		string(models.MemberActive), toUnix(now), tontineID)
	if err != nil {
		return fmt.Errorf("failed to activate members: %w", err)
	}
	return nil
}

// RemoveMember detaches a user from a tontine.
func (q *queries) RemoveMember(ctx context.Context, tontineID, userID string) error {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM tontine_members WHERE tontine_id = ? AND user_id = ?", tontineID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return expectOneRow(result, "membership", tontineID+"/"+userID)
}
