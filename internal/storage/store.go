// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Queries is the set of reads and writes available both directly on a Store and inside a
// transaction.
type Queries interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	ListContacts(ctx context.Context, userID string) ([]*models.Contact, error)

	// Tontines
	CreateTontine(ctx context.Context, t *models.Tontine) error
	GetTontine(ctx context.Context, id string) (*models.Tontine, error)
	UpdateTontine(ctx context.Context, t *models.Tontine) error
	DeleteTontine(ctx context.Context, id string) error
	// ListTontinesForUser returns the tontines userID belongs to, newest first.
	// An empty status matches every status.
	ListTontinesForUser(ctx context.Context, userID string, status models.Status) ([]*models.Tontine, error)

	// Memberships
	AddMember(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, tontineID, userID string) (*models.Membership, error)
	// ListMembers returns members ordered by turn order (unassigned last), then join time.
	ListMembers(ctx context.Context, tontineID string) ([]*models.Member, error)
	CountMembers(ctx context.Context, tontineID string) (int, error)
	UpdateMember(ctx context.Context, m *models.Membership) error
	// SetTurnOrders clears every turn order in the tontine, then assigns the given ones.
	SetTurnOrders(ctx context.Context, tontineID string, order map[string]int, now time.Time) error
	ActivateMembers(ctx context.Context, tontineID string, now time.Time) error
	RemoveMember(ctx context.Context, tontineID, userID string) error

	// Ledger
	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentExists(ctx context.Context, tontineID, userID string, round int) (bool, error)
	ListPayments(ctx context.Context, tontineID string) ([]*models.Payment, error)
	ListRoundPayments(ctx context.Context, tontineID string, round int) ([]*models.Payment, error)
	SumRoundPayments(ctx context.Context, tontineID string, round int) (decimal.Decimal, error)
	CreatePenalty(ctx context.Context, p *models.Penalty) error
	GetPenalty(ctx context.Context, id string) (*models.Penalty, error)
	UpdatePenalty(ctx context.Context, p *models.Penalty) error
	ListPenalties(ctx context.Context, tontineID string) ([]*models.Penalty, error)

	// Activity log
	AppendActivity(ctx context.Context, e *models.ActivityEntry) error
	ListActivity(ctx context.Context, tontineID string) ([]*models.ActivityEntry, error)
}

// Store defines the interface for tontine storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	Queries

	// InTx runs fn inside a single transaction. The transaction commits if fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// InGroupTx is InTx serialized per tontine: concurrent calls for the same tontineID run one
	// after another, calls for different tontines do not wait on each other.
	InGroupTx(ctx context.Context, tontineID string, fn func(q Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
