package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/calculator"
	"github.com/mmynk/tontine/internal/errs"
	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// minMembers is the smallest roster a tontine can start or lock its order with.
const minMembers = 2

// requireOpenOrder rejects turn order changes outside the pending state or once the order is locked.
func requireOpenOrder(t *models.Tontine) error {
	if t.Status != models.StatusPending {
		return errs.InvalidState("the turn order can only change while the tontine is pending, it is %s", t.Status)
	}
	if t.OrderLocked {
		return errs.Conflict("the turn order is already locked")
	}
	return nil
}

// requireLockableRoster rejects locking an order that could never start.
func requireLockableRoster(members []*models.Member) error {
	if len(members) < minMembers {
		return errs.InvalidState("at least %d members are needed to lock the turn order, there are %d", minMembers, len(members))
	}
	return nil
}

// requireOpenRoster rejects roster changes once the order is fixed.
func requireOpenRoster(t *models.Tontine) error {
	if t.Status != models.StatusPending {
		return errs.InvalidState("members can only change while the tontine is pending, it is %s", t.Status)
	}
	if t.OrderLocked {
		return errs.InvalidState("the turn order is locked, members can no longer change")
	}
	return nil
}

func memberIDs(members []*models.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

// AddMember adds the user registered with phone to a pending tontine.
func (s *TontineService) AddMember(ctx context.Context, callerID, tontineID, phone string) (*models.Member, error) {
	s.logger.Info("Add member request received", "group_id", tontineID, "user_id", callerID)

	var added *models.Member
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if err := requireOpenRoster(t); err != nil {
			return err
		}

		user, err := q.GetUserByPhone(ctx, phone)
		if err != nil {
			return translate(err, "no user is registered with this phone number")
		}
		if _, err := q.GetMembership(ctx, t.ID, user.ID); err == nil {
			return errs.Conflict("%s is already a member of this tontine", user.Name)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := s.clock.Now()
		m := models.Membership{
			TontineID: t.ID,
			UserID:    user.ID,
			Role:      models.RoleMember,
			Status:    models.MemberPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.AddMember(ctx, &m); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errs.Conflict("%s is already a member of this tontine", user.Name)
			}
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, user.ID, 0, decimal.Zero, "%s joined the tontine.", user.Name)
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		added = &models.Member{Membership: m, Name: user.Name, Phone: user.Phone}
		return nil
	})
	if err != nil {
		s.logFailure("Add member", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.logger.Info("Member added", "group_id", tontineID, "member_id", added.UserID)
	return added, nil
}

// RemoveMember drops a non-admin member from a pending tontine whose order is not locked.
// Any manual turn order is cleared.
func (s *TontineService) RemoveMember(ctx context.Context, callerID, tontineID, userID string) error {
	s.logger.Info("Remove member request received", "group_id", tontineID, "user_id", callerID, "member_id", userID)

	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if err := requireOpenRoster(t); err != nil {
			return err
		}
		if userID == t.CreatorID {
			return errs.InvalidInput("the admin cannot be removed, transfer the admin role first")
		}
		if _, err := q.GetMembership(ctx, t.ID, userID); err != nil {
			return translate(err, "user is not a member of this tontine")
		}
		if err := q.RemoveMember(ctx, t.ID, userID); err != nil {
			return translate(err, "user is not a member of this tontine")
		}

		if t.OrderType != models.OrderNotDefined {
			now := s.clock.Now()
			if err := q.SetTurnOrders(ctx, t.ID, nil, now); err != nil {
				return err
			}
			t.OrderType = models.OrderNotDefined
			t.UpdatedAt = now
			if err := q.UpdateTontine(ctx, t); err != nil {
				return err
			}
		}

		entry := s.newEntry(t, models.ActivityInfo, userID, 0, decimal.Zero, "A member left the tontine.")
		return q.AppendActivity(ctx, entry)
	})
	if err != nil {
		s.logFailure("Remove member", err, "group_id", tontineID, "user_id", callerID)
		return err
	}

	s.logger.Info("Member removed", "group_id", tontineID, "member_id", userID)
	return nil
}

// TransferAdmin hands the admin role to another member. The caller becomes a regular member.
func (s *TontineService) TransferAdmin(ctx context.Context, callerID, tontineID, userID string) (*TontineView, error) {
	s.logger.Info("Transfer admin request received", "group_id", tontineID, "user_id", callerID, "member_id", userID)

	var view *TontineView
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if userID == callerID {
			return errs.InvalidInput("you are already the admin")
		}

		target, err := q.GetMembership(ctx, t.ID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return errs.InvalidInput("the new admin must be a member of this tontine")
			}
			return err
		}
		current, err := q.GetMembership(ctx, t.ID, callerID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		current.Role, current.UpdatedAt = models.RoleMember, now
		target.Role, target.UpdatedAt = models.RoleAdmin, now
		if err := q.UpdateMember(ctx, current); err != nil {
			return err
		}
		if err := q.UpdateMember(ctx, target); err != nil {
			return err
		}
		t.CreatorID = userID
		t.UpdatedAt = now
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}

		entry := s.newEntry(t, models.ActivityInfo, userID, 0, decimal.Zero, "The admin role was transferred.")
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		view, err = s.view(ctx, q, t)
		return err
	})
	if err != nil {
		s.logFailure("Transfer admin", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.logger.Info("Admin transferred", "group_id", tontineID, "admin_id", userID)
	return view, nil
}

// Shuffle assigns a random turn order to every current member and locks it.
func (s *TontineService) Shuffle(ctx context.Context, callerID, tontineID string) ([]*models.Member, error) {
	s.logger.Info("Shuffle request received", "group_id", tontineID, "user_id", callerID)

	var members []*models.Member
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if err := requireOpenOrder(t); err != nil {
			return err
		}

		current, err := q.ListMembers(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := requireLockableRoster(current); err != nil {
			return err
		}
		now := s.clock.Now()
		if err := q.SetTurnOrders(ctx, t.ID, calculator.ShuffleTurnOrder(memberIDs(current), s.random), now); err != nil {
			return err
		}

		t.OrderType = models.OrderRandom
		t.OrderLocked = true
		t.UpdatedAt = now
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, "", 0, decimal.Zero,
			"The turn order was drawn at random for %d members and locked.", len(current))
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		members, err = q.ListMembers(ctx, t.ID)
		return err
	})
	if err != nil {
		s.logFailure("Shuffle", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.logger.Info("Turn order shuffled", "group_id", tontineID, "members", len(members))
	return members, nil
}

// Reorder assigns turns following userIDs, which must list every member exactly once.
// With lock set the order becomes final.
func (s *TontineService) Reorder(ctx context.Context, callerID, tontineID string, userIDs []string, lock bool) ([]*models.Member, error) {
	s.logger.Info("Reorder request received", "group_id", tontineID, "user_id", callerID, "lock", lock)

	var members []*models.Member
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if err := requireOpenOrder(t); err != nil {
			return err
		}

		current, err := q.ListMembers(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := calculator.ValidatePermutation(memberIDs(current), userIDs); err != nil {
			return errs.Wrap(errs.KindInvalidInput, err, "user_ids must list every member exactly once")
		}
		if lock {
			if err := requireLockableRoster(current); err != nil {
				return err
			}
		}
		now := s.clock.Now()
		if err := q.SetTurnOrders(ctx, t.ID, calculator.SequenceTurnOrder(userIDs), now); err != nil {
			return err
		}

		t.OrderType = models.OrderManual
		t.OrderLocked = lock
		t.UpdatedAt = now
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, "", 0, decimal.Zero, "The admin set the turn order manually.")
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		members, err = q.ListMembers(ctx, t.ID)
		return err
	})
	if err != nil {
		s.logFailure("Reorder", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.logger.Info("Turn order set", "group_id", tontineID, "locked", lock)
	return members, nil
}
