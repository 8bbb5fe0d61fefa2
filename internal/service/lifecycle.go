package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/calculator"
	"github.com/mmynk/tontine/internal/errs"
	"github.com/mmynk/tontine/internal/metrics"
	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// CreateTontineInput holds the parameters of a new tontine.
type CreateTontineInput struct {
	Name          string
	Amount        decimal.Decimal
	FrequencyDays int
	// LateFee defaults to zero.
	LateFee decimal.Decimal
}

func (in CreateTontineInput) validate() error {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "required"
	} else if len(in.Name) > 255 {
		fields["name"] = "max"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "gt"
	}
	if in.FrequencyDays < 1 {
		fields["frequency_days"] = "min"
	}
	if in.LateFee.IsNegative() {
		fields["late_fee"] = "gte"
	}
	if len(fields) > 0 {
		return errs.Validation(fields)
	}
	return nil
}

// Create makes a pending tontine with the caller as its admin and only member.
func (s *TontineService) Create(ctx context.Context, callerID string, in CreateTontineInput) (*TontineView, error) {
	s.logger.Info("Create tontine request received", "user_id", callerID, "name", in.Name)

	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &models.Tontine{
		ID:            uuid.New().String(),
		Name:          in.Name,
		Amount:        in.Amount,
		FrequencyDays: in.FrequencyDays,
		LateFee:       in.LateFee,
		CreatorID:     callerID,
		Status:        models.StatusPending,
		OrderType:     models.OrderNotDefined,
		CurrentTurn:   1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var view *TontineView
	err := s.store.InGroupTx(ctx, t.ID, func(q storage.Queries) error {
		creator, err := q.GetUserByID(ctx, callerID)
		if err != nil {
			return translate(err, "user not found")
		}
		if err := q.CreateTontine(ctx, t); err != nil {
			return err
		}
		if err := q.AddMember(ctx, &models.Membership{
			TontineID: t.ID,
			UserID:    callerID,
			Role:      models.RoleAdmin,
			Status:    models.MemberActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, callerID, 0, decimal.Zero,
			"Tontine %q created by %s.", t.Name, creator.Name)
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		view, err = s.view(ctx, q, t)
		return err
	})
	if err != nil {
		s.logFailure("Create tontine", err, "user_id", callerID)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventTontineCreated)
	s.logger.Info("Tontine created", "group_id", t.ID, "user_id", callerID)
	return view, nil
}

// Start moves a pending tontine to active. An unlocked turn order is replaced by a fresh random
// permutation and locked. order_type becomes random only if no order was defined before.
func (s *TontineService) Start(ctx context.Context, callerID, tontineID string) (*TontineView, error) {
	s.logger.Info("Start tontine request received", "group_id", tontineID, "user_id", callerID)

	var view *TontineView
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if t.Status != models.StatusPending {
			return errs.InvalidState("tontine is already %s", t.Status)
		}

		members, err := q.ListMembers(ctx, t.ID)
		if err != nil {
			return err
		}
		if len(members) < minMembers {
			return errs.InvalidState("a tontine needs at least %d members to start, it has %d", minMembers, len(members))
		}

		now := s.clock.Now()
		if !t.OrderLocked {
			if err := q.SetTurnOrders(ctx, t.ID, calculator.ShuffleTurnOrder(memberIDs(members), s.random), now); err != nil {
				return err
			}
			if t.OrderType == models.OrderNotDefined {
				t.OrderType = models.OrderRandom
			}
		} else if err := validateLockedOrder(members); err != nil {
			return err
		}

		t.Status = models.StatusActive
		t.StartDate = &now
		t.CurrentTurn = 1
		t.OrderLocked = true
		t.UpdatedAt = now
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}
		if err := q.ActivateMembers(ctx, t.ID, now); err != nil {
			return err
		}

		entry := s.newEntry(t, models.ActivityStart, "", 1, decimal.Zero,
			"The tontine started with %d members. The turn order is locked.", len(members))
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		view, err = s.view(ctx, q, t)
		return err
	})
	if err != nil {
		s.logFailure("Start tontine", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventStarted)
	s.logger.Info("Tontine started", "group_id", tontineID, "members", view.MembersCount)
	return view, nil
}

// validateLockedOrder checks that a previously locked order still covers every member.
func validateLockedOrder(members []*models.Member) error {
	order := make(map[string]int, len(members))
	for _, m := range members {
		if m.TurnOrder == nil {
			return errs.InvalidState("member %s has no turn order", m.Name)
		}
		order[m.UserID] = *m.TurnOrder
	}
	if err := calculator.ValidateTurnOrder(order); err != nil {
		return errs.Wrap(errs.KindInvalidState, err, "turn order is inconsistent")
	}
	return nil
}

// CloseRoundResult reports where the round pointer moved.
type CloseRoundResult struct {
	Status      models.Status `json:"status"`
	ClosedRound int           `json:"closed_round"`
	// NextRound is nil once the tontine is completed.
	NextRound *int `json:"next_round,omitempty"`
}

// CloseRound pays out the current beneficiary and advances the round pointer. Closing the last
// round completes the tontine.
func (s *TontineService) CloseRound(ctx context.Context, callerID, tontineID string) (*CloseRoundResult, error) {
	s.logger.Info("Close round request received", "group_id", tontineID, "user_id", callerID)

	var result *CloseRoundResult
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if t.Status != models.StatusActive {
			return errs.InvalidState("only an active tontine has rounds to close, this one is %s", t.Status)
		}

		members, err := q.ListMembers(ctx, t.ID)
		if err != nil {
			return err
		}

		closed := t.CurrentTurn
		beneficiaryName := "nobody"
		beneficiaryID := ""
		if b := calculator.FindBeneficiary(members, closed); b != nil {
			beneficiaryName, beneficiaryID = b.Name, b.UserID
			payout := s.newEntry(t, models.ActivityPayout, b.UserID, closed, t.Pot(len(members)),
				"%s received the pot of round %d.", b.Name, closed)
			if err := q.AppendActivity(ctx, payout); err != nil {
				return err
			}
		}

		next := closed + 1
		var entry *models.ActivityEntry
		if next > len(members) {
			t.Status = models.StatusCompleted
			entry = s.newEntry(t, models.ActivityInfo, beneficiaryID, closed, decimal.Zero,
				"Round %d closed. Every member has received the pot, the tontine is completed.", closed)
			result = &CloseRoundResult{Status: t.Status, ClosedRound: closed}
		} else {
			t.CurrentTurn = next
			entry = s.newEntry(t, models.ActivityInfo, beneficiaryID, closed, decimal.Zero,
				"Round %d closed (beneficiary: %s). Moving to round %d.", closed, beneficiaryName, next)
			result = &CloseRoundResult{Status: t.Status, ClosedRound: closed, NextRound: &next}
		}
		t.UpdatedAt = s.clock.Now()
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}
		return q.AppendActivity(ctx, entry)
	})
	if err != nil {
		s.logFailure("Close round", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventRoundClosed)
	if result.Status == models.StatusCompleted {
		s.metrics.LedgerEvent(metrics.EventCompleted)
	}
	s.logger.Info("Round closed", "group_id", tontineID, "round", result.ClosedRound, "status", result.Status)
	return result, nil
}

// Cancel stops a tontine that has not reached a terminal state.
func (s *TontineService) Cancel(ctx context.Context, callerID, tontineID string) (*TontineView, error) {
	s.logger.Info("Cancel tontine request received", "group_id", tontineID, "user_id", callerID)

	var view *TontineView
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if t.Status.Terminal() {
			return errs.InvalidState("tontine is already %s", t.Status)
		}

		t.Status = models.StatusCancelled
		t.UpdatedAt = s.clock.Now()
		if err := q.UpdateTontine(ctx, t); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, callerID, 0, decimal.Zero, "The tontine was cancelled by its admin.")
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		view, err = s.view(ctx, q, t)
		return err
	})
	if err != nil {
		s.logFailure("Cancel tontine", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventCancelled)
	s.logger.Info("Tontine cancelled", "group_id", tontineID)
	return view, nil
}

// Delete removes a tontine with its memberships, payments and penalties. Its activity log is kept.
func (s *TontineService) Delete(ctx context.Context, callerID, tontineID string) error {
	s.logger.Info("Delete tontine request received", "group_id", tontineID, "user_id", callerID)

	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityInfo, callerID, 0, decimal.Zero, "Tontine %q was deleted.", t.Name)
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		return q.DeleteTontine(ctx, t.ID)
	})
	if err != nil {
		s.logFailure("Delete tontine", err, "group_id", tontineID, "user_id", callerID)
		return err
	}

	s.logger.Info("Tontine deleted", "group_id", tontineID)
	return nil
}
