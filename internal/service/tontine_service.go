package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/calculator"
	"github.com/mmynk/tontine/internal/clock"
	"github.com/mmynk/tontine/internal/errs"
	"github.com/mmynk/tontine/internal/metrics"
	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// TontineService implements group membership, the lifecycle, the ledger and the read views.
type TontineService struct {
	store   storage.Store
	clock   clock.Clock
	random  calculator.RandomSource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a TontineService.
type Option func(*TontineService)

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *TontineService) { s.clock = c }
}

// WithRandomSource overrides the source used to shuffle turn orders.
func WithRandomSource(src calculator.RandomSource) Option {
	return func(s *TontineService) { s.random = src }
}

// WithMetrics records ledger events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TontineService) { s.metrics = m }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *TontineService) { s.logger = l }
}

// NewTontineService creates a new TontineService with the given storage backend.
func NewTontineService(store storage.Store, opts ...Option) *TontineService {
	s := &TontineService{
		store:  store,
		clock:  clock.System{},
		random: calculator.DefaultRandomSource(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TontineView is a tontine with its members and round clock projections.
type TontineView struct {
	*models.Tontine
	MembersCount  int              `json:"members_count"`
	PotTotal      decimal.Decimal  `json:"pot_total"`
	RoundDeadline *time.Time       `json:"round_deadline"`
	DaysLeft      int              `json:"days_left"`
	IsOverdue     bool             `json:"is_overdue"`
	Members       []*models.Member `json:"members"`
}

func (s *TontineService) view(ctx context.Context, q storage.Queries, t *models.Tontine) (*TontineView, error) {
	members, err := q.ListMembers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	info := calculator.Round(t, s.clock.Now())
	return &TontineView{
		Tontine:       t,
		MembersCount:  len(members),
		PotTotal:      t.Pot(len(members)),
		RoundDeadline: info.Deadline,
		DaysLeft:      info.DaysLeft,
		IsOverdue:     info.IsOverdue,
		Members:       members,
	}, nil
}

// loadTontine fetches a tontine, translating a missing row to NotFound.
func loadTontine(ctx context.Context, q storage.Queries, id string) (*models.Tontine, error) {
	t, err := q.GetTontine(ctx, id)
	if err != nil {
		return nil, translate(err, "tontine not found")
	}
	return t, nil
}

// requireAdmin guards every mutating operation on a tontine.
func requireAdmin(t *models.Tontine, callerID string) error {
	if t.CreatorID != callerID {
		return errs.Forbidden("only the tontine admin can do this")
	}
	return nil
}

// requireMember guards reads on a tontine.
func requireMember(ctx context.Context, q storage.Queries, t *models.Tontine, callerID string) error {
	if _, err := q.GetMembership(ctx, t.ID, callerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errs.Forbidden("you are not a member of this tontine")
		}
		return err
	}
	return nil
}

// translate maps storage sentinels to error kinds; other errors pass through as internal.
func translate(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errs.Wrap(errs.KindNotFound, err, notFoundMsg)
	case errors.Is(err, storage.ErrConflict):
		return errs.Wrap(errs.KindConflict, err, "conflicting write")
	default:
		return err
	}
}

// newEntry builds an activity entry stamped with the current time.
func (s *TontineService) newEntry(t *models.Tontine, typ models.ActivityType, userID string, round int, amount decimal.Decimal, format string, args ...any) *models.ActivityEntry {
	e := &models.ActivityEntry{
		ID:          uuid.New().String(),
		TontineID:   t.ID,
		Type:        typ,
		Amount:      amount,
		Description: fmt.Sprintf(format, args...),
		CreatedAt:   s.clock.Now(),
	}
	if userID != "" {
		e.UserID = &userID
	}
	if round > 0 {
		e.RoundNumber = &round
	}
	return e
}

// logFailure logs a failed operation at a level matching its kind.
func (s *TontineService) logFailure(op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if errs.KindOf(err) == errs.KindInternal {
		s.logger.Error(op+" failed", attrs...)
		return
	}
	s.logger.Warn(op+" rejected", append(attrs, "kind", errs.KindOf(err).String())...)
}
