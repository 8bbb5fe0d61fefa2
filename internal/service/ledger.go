package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/errs"
	"github.com/mmynk/tontine/internal/metrics"
	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// targetMember resolves the member a ledger operation is about. A non-member is invalid input.
func targetMember(ctx context.Context, q storage.Queries, t *models.Tontine, userID string) (*models.User, error) {
	if _, err := q.GetMembership(ctx, t.ID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.InvalidInput("user is not a member of this tontine")
		}
		return nil, err
	}
	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return user, nil
}

// RecordPayment records userID's contribution for round. The amount is the tontine's contribution
// at the time of recording. A second payment for the same member and round is a conflict.
func (s *TontineService) RecordPayment(ctx context.Context, callerID, tontineID, userID string, round int) (*models.Payment, error) {
	s.logger.Info("Record payment request received",
		"group_id", tontineID,
		"user_id", callerID,
		"member_id", userID,
		"round", round,
	)

	var payment *models.Payment
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if round < 1 {
			return errs.InvalidInput("round_number must be at least 1")
		}
		user, err := targetMember(ctx, q, t, userID)
		if err != nil {
			return err
		}
		n, err := q.CountMembers(ctx, t.ID)
		if err != nil {
			return err
		}
		if round > n {
			return errs.InvalidInput("round_number must be at most %d", n)
		}
		if t.Status == models.StatusPending || t.Status == models.StatusCancelled {
			return errs.InvalidState("payments cannot be recorded while the tontine is %s", t.Status)
		}

		exists, err := q.PaymentExists(ctx, t.ID, userID, round)
		if err != nil {
			return err
		}
		if exists {
			return errs.Conflict("%s has already paid for round %d", user.Name, round)
		}

		payment = &models.Payment{
			ID:          uuid.New().String(),
			TontineID:   t.ID,
			UserID:      userID,
			RoundNumber: round,
			Amount:      t.Amount,
			PaidAt:      s.clock.Now(),
			RecordedBy:  callerID,
		}
		if err := q.CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errs.Conflict("%s has already paid for round %d", user.Name, round)
			}
			return err
		}
		entry := s.newEntry(t, models.ActivityPayment, userID, round, t.Amount,
			"Contribution from %s received for round %d.", user.Name, round)
		return q.AppendActivity(ctx, entry)
	})
	if err != nil {
		s.logFailure("Record payment", err, "group_id", tontineID, "member_id", userID, "round", round)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventPayment)
	s.logger.Info("Payment recorded", "group_id", tontineID, "payment_id", payment.ID, "round", round)
	return payment, nil
}

// ApplyPenalty fines userID for round. A nil amount applies the tontine's late fee.
func (s *TontineService) ApplyPenalty(ctx context.Context, callerID, tontineID, userID string, round int, amount *decimal.Decimal) (*models.Penalty, error) {
	s.logger.Info("Apply penalty request received",
		"group_id", tontineID,
		"user_id", callerID,
		"member_id", userID,
		"round", round,
	)

	var penalty *models.Penalty
	err := s.store.InGroupTx(ctx, tontineID, func(q storage.Queries) error {
		t, err := loadTontine(ctx, q, tontineID)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, callerID); err != nil {
			return err
		}
		if round < 1 {
			return errs.InvalidInput("round_number must be at least 1")
		}
		user, err := targetMember(ctx, q, t, userID)
		if err != nil {
			return err
		}

		value := t.LateFee
		if amount != nil {
			value = *amount
		}
		if !value.IsPositive() {
			return errs.InvalidInput("penalty amount must be positive")
		}

		now := s.clock.Now()
		penalty = &models.Penalty{
			ID:          uuid.New().String(),
			TontineID:   t.ID,
			UserID:      userID,
			RoundNumber: round,
			Amount:      value,
			Status:      models.PenaltyUnpaid,
			CreatedAt:   now,
		}
		if err := q.CreatePenalty(ctx, penalty); err != nil {
			return err
		}
		entry := s.newEntry(t, models.ActivityPenalty, userID, round, value,
			"Penalty of %s applied to %s for round %d.", value.String(), user.Name, round)
		return q.AppendActivity(ctx, entry)
	})
	if err != nil {
		s.logFailure("Apply penalty", err, "group_id", tontineID, "member_id", userID, "round", round)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventPenalty)
	s.logger.Info("Penalty applied", "group_id", tontineID, "penalty_id", penalty.ID, "amount", penalty.Amount.String())
	return penalty, nil
}

// PayPenalty settles a penalty. Only the fined member or the tontine admin may do so, and a paid
// penalty cannot be paid again.
func (s *TontineService) PayPenalty(ctx context.Context, callerID, penaltyID string) (*models.Penalty, error) {
	s.logger.Info("Pay penalty request received", "penalty_id", penaltyID, "user_id", callerID)

	p, err := s.store.GetPenalty(ctx, penaltyID)
	if err != nil {
		err = translate(err, "penalty not found")
		s.logFailure("Pay penalty", err, "penalty_id", penaltyID)
		return nil, err
	}

	err = s.store.InGroupTx(ctx, p.TontineID, func(q storage.Queries) error {
		p, err = q.GetPenalty(ctx, penaltyID)
		if err != nil {
			return translate(err, "penalty not found")
		}
		t, err := loadTontine(ctx, q, p.TontineID)
		if err != nil {
			return err
		}
		if callerID != p.UserID && callerID != t.CreatorID {
			return errs.Forbidden("only the fined member or the tontine admin can pay this penalty")
		}
		if p.Status == models.PenaltyPaid {
			return errs.Conflict("this penalty has already been paid")
		}

		now := s.clock.Now()
		p.Status = models.PenaltyPaid
		p.PaidAt = &now
		if err := q.UpdatePenalty(ctx, p); err != nil {
			return err
		}

		name := "a member"
		if u, err := q.GetUserByID(ctx, p.UserID); err == nil {
			name = u.Name
		}
		entry := s.newEntry(t, models.ActivityInfo, p.UserID, p.RoundNumber, p.Amount,
			"Penalty of %s for round %d paid by %s.", p.Amount.String(), p.RoundNumber, name)
		return q.AppendActivity(ctx, entry)
	})
	if err != nil {
		s.logFailure("Pay penalty", err, "penalty_id", penaltyID, "user_id", callerID)
		return nil, err
	}

	s.metrics.LedgerEvent(metrics.EventPenaltyPaid)
	s.logger.Info("Penalty paid", "group_id", p.TontineID, "penalty_id", p.ID)
	return p, nil
}
