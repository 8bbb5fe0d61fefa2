package service

import (
	"context"

	"github.com/mmynk/tontine/internal/calculator"
	"github.com/mmynk/tontine/internal/models"
)

// List returns the tontines the caller belongs to, newest first.
func (s *TontineService) List(ctx context.Context, callerID string) ([]*TontineView, error) {
	tontines, err := s.store.ListTontinesForUser(ctx, callerID, "")
	if err != nil {
		s.logger.Error("List tontines failed", "user_id", callerID, "error", err)
		return nil, err
	}

	views := make([]*TontineView, 0, len(tontines))
	for _, t := range tontines {
		v, err := s.view(ctx, s.store, t)
		if err != nil {
			s.logger.Error("List tontines failed", "user_id", callerID, "group_id", t.ID, "error", err)
			return nil, err
		}
		views = append(views, v)
	}

	s.logger.Info("List tontines successful", "user_id", callerID, "count", len(views))
	return views, nil
}

// readable loads a tontine the caller is a member of.
func (s *TontineService) readable(ctx context.Context, callerID, tontineID string) (*models.Tontine, error) {
	t, err := loadTontine(ctx, s.store, tontineID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(ctx, s.store, t, callerID); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one tontine with its members.
func (s *TontineService) Get(ctx context.Context, callerID, tontineID string) (*TontineView, error) {
	t, err := s.readable(ctx, callerID, tontineID)
	if err != nil {
		s.logFailure("Get tontine", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}
	return s.view(ctx, s.store, t)
}

// PaymentStatus reports who has paid for the current round and who collects it.
func (s *TontineService) PaymentStatus(ctx context.Context, callerID, tontineID string) (*calculator.PaymentStatus, error) {
	t, err := s.readable(ctx, callerID, tontineID)
	if err != nil {
		s.logFailure("Payment status", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListRoundPayments(ctx, t.ID, t.CurrentTurn)
	if err != nil {
		return nil, err
	}

	status := calculator.BuildPaymentStatus(t, members, payments, s.clock.Now())
	return &status, nil
}

// Debtors lists the members with unpaid elapsed rounds.
func (s *TontineService) Debtors(ctx context.Context, callerID, tontineID string) ([]calculator.Debtor, error) {
	t, err := s.readable(ctx, callerID, tontineID)
	if err != nil {
		s.logFailure("Debtors", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	penalties, err := s.store.ListPenalties(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	debtors := calculator.FindDebtors(t, members, payments, penalties)
	s.logger.Info("Debtors computed", "group_id", t.ID, "count", len(debtors))
	return debtors, nil
}

// History returns the tontine's activity log, newest first.
func (s *TontineService) History(ctx context.Context, callerID, tontineID string) ([]*models.ActivityEntry, error) {
	t, err := s.readable(ctx, callerID, tontineID)
	if err != nil {
		s.logFailure("History", err, "group_id", tontineID, "user_id", callerID)
		return nil, err
	}
	return s.store.ListActivity(ctx, t.ID)
}

// Dashboard aggregates the current round of every active tontine the caller belongs to.
func (s *TontineService) Dashboard(ctx context.Context, callerID string) (*calculator.DashboardStats, error) {
	active, err := s.store.ListTontinesForUser(ctx, callerID, models.StatusActive)
	if err != nil {
		s.logger.Error("Dashboard failed", "user_id", callerID, "error", err)
		return nil, err
	}

	snapshots := make([]calculator.GroupSnapshot, 0, len(active))
	for _, t := range active {
		n, err := s.store.CountMembers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		paid, err := s.store.SumRoundPayments(ctx, t.ID, t.CurrentTurn)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, calculator.GroupSnapshot{Tontine: t, MemberCount: n, PaidThisRound: paid})
	}

	stats := calculator.BuildDashboard(snapshots, s.clock.Now())
	return &stats, nil
}

// Contacts lists the users sharing at least one tontine with the caller.
func (s *TontineService) Contacts(ctx context.Context, callerID string) ([]*models.Contact, error) {
	contacts, err := s.store.ListContacts(ctx, callerID)
	if err != nil {
		s.logger.Error("Contacts failed", "user_id", callerID, "error", err)
		return nil, err
	}
	return contacts, nil
}
