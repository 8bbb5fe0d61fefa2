package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tontine-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var baseTime = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func createUser(t *testing.T, store *SQLiteStore, name, phone string) *models.User {
	t.Helper()
	user := models.NewUser(name, phone, "hash", baseTime)
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return user
}

func createTontine(t *testing.T, store *SQLiteStore, admin *models.User) *models.Tontine {
	t.Helper()
	ctx := context.Background()
	tontine := &models.Tontine{
		ID:            uuid.New().String(),
		Name:          "Family savings",
		Amount:        decimal.NewFromInt(1000),
		FrequencyDays: 30,
		LateFee:       decimal.NewFromInt(200),
		CreatorID:     admin.ID,
		Status:        models.StatusPending,
		OrderType:     models.OrderNotDefined,
		CurrentTurn:   1,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
	if err := store.CreateTontine(ctx, tontine); err != nil {
		t.Fatalf("CreateTontine failed: %v", err)
	}
	addMember(t, store, tontine, admin, models.RoleAdmin)
	return tontine
}

func addMember(t *testing.T, store *SQLiteStore, tontine *models.Tontine, user *models.User, role models.Role) {
	t.Helper()
	err := store.AddMember(context.Background(), &models.Membership{
		TontineID: tontine.ID,
		UserID:    user.ID,
		Role:      role,
		Status:    models.MemberPending,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	})
	if err != nil {
		t.Fatalf("AddMember(%s) failed: %v", user.Name, err)
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")

	t.Run("GetUserByPhone retrieves the user", func(t *testing.T) {
		got, err := store.GetUserByPhone(ctx, "+22890000001")
		if err != nil {
			t.Fatalf("GetUserByPhone failed: %v", err)
		}
		if got.ID != alice.ID || got.Name != "Alice" {
			t.Errorf("Unexpected user: %+v", got)
		}
		if !got.CreatedAt.Equal(baseTime) {
			t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, baseTime)
		}
	})

	t.Run("duplicate phone is a conflict", func(t *testing.T) {
		dup := models.NewUser("Other", "+22890000001", "hash", baseTime)
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestTontines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")
	bob := createUser(t, store, "Bob", "+22890000002")
	tontine := createTontine(t, store, alice)
	addMember(t, store, tontine, bob, models.RoleMember)

	t.Run("GetTontine round-trips amounts and state", func(t *testing.T) {
		got, err := store.GetTontine(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("GetTontine failed: %v", err)
		}
		if !got.Amount.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Amount mismatch: got %s", got.Amount)
		}
		if !got.LateFee.Equal(decimal.NewFromInt(200)) {
			t.Errorf("LateFee mismatch: got %s", got.LateFee)
		}
		if got.StartDate != nil {
			t.Errorf("Expected nil StartDate, got %v", got.StartDate)
		}
		if got.Status != models.StatusPending || got.CurrentTurn != 1 {
			t.Errorf("Unexpected state: status=%s turn=%d", got.Status, got.CurrentTurn)
		}
	})

	t.Run("UpdateTontine persists the lifecycle fields", func(t *testing.T) {
		start := baseTime.Add(24 * time.Hour)
		tontine.Status = models.StatusActive
		tontine.StartDate = &start
		tontine.OrderLocked = true
		tontine.OrderType = models.OrderRandom
		tontine.CurrentTurn = 2
		if err := store.UpdateTontine(ctx, tontine); err != nil {
			t.Fatalf("UpdateTontine failed: %v", err)
		}

		got, err := store.GetTontine(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("GetTontine failed: %v", err)
		}
		if got.StartDate == nil || !got.StartDate.Equal(start) {
			t.Errorf("StartDate mismatch: got %v, want %v", got.StartDate, start)
		}
		if !got.OrderLocked || got.OrderType != models.OrderRandom || got.CurrentTurn != 2 {
			t.Errorf("Unexpected state: %+v", got)
		}
	})

	t.Run("ListTontinesForUser filters by member and status", func(t *testing.T) {
		all, err := store.ListTontinesForUser(ctx, bob.ID, "")
		if err != nil {
			t.Fatalf("ListTontinesForUser failed: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("Expected 1 tontine, got %d", len(all))
		}

		pending, err := store.ListTontinesForUser(ctx, bob.ID, models.StatusPending)
		if err != nil {
			t.Fatalf("ListTontinesForUser failed: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("Expected no pending tontine, got %d", len(pending))
		}
	})

	t.Run("ListContacts returns the other members", func(t *testing.T) {
		contacts, err := store.ListContacts(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListContacts failed: %v", err)
		}
		if len(contacts) != 1 || contacts[0].ID != bob.ID {
			t.Errorf("Expected Bob as only contact, got %+v", contacts)
		}
	})

	t.Run("GetTontine returns error for nonexistent tontine", func(t *testing.T) {
		_, err := store.GetTontine(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")
	bob := createUser(t, store, "Bob", "+22890000002")
	carol := createUser(t, store, "Carol", "+22890000003")
	tontine := createTontine(t, store, alice)
	addMember(t, store, tontine, bob, models.RoleMember)
	addMember(t, store, tontine, carol, models.RoleMember)

	t.Run("duplicate membership is a conflict", func(t *testing.T) {
		err := store.AddMember(ctx, &models.Membership{
			TontineID: tontine.ID,
			UserID:    bob.ID,
			Role:      models.RoleMember,
			Status:    models.MemberPending,
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		})
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("SetTurnOrders reassigns without collisions", func(t *testing.T) {
		first := map[string]int{alice.ID: 1, bob.ID: 2, carol.ID: 3}
		if err := store.SetTurnOrders(ctx, tontine.ID, first, baseTime); err != nil {
			t.Fatalf("SetTurnOrders failed: %v", err)
		}
		second := map[string]int{alice.ID: 3, bob.ID: 1, carol.ID: 2}
		if err := store.SetTurnOrders(ctx, tontine.ID, second, baseTime); err != nil {
			t.Fatalf("SetTurnOrders (reassign) failed: %v", err)
		}

		members, err := store.ListMembers(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		wantOrder := []string{"Bob", "Carol", "Alice"}
		for i, m := range members {
			if m.Name != wantOrder[i] {
				t.Errorf("Position %d: got %s, want %s", i, m.Name, wantOrder[i])
			}
			if m.TurnOrder == nil || *m.TurnOrder != i+1 {
				t.Errorf("Position %d: unexpected turn order %v", i, m.TurnOrder)
			}
		}
	})

	t.Run("ActivateMembers marks everyone active", func(t *testing.T) {
		activatedAt := baseTime.Add(48 * time.Hour)
		if err := store.ActivateMembers(ctx, tontine.ID, activatedAt); err != nil {
			t.Fatalf("ActivateMembers failed: %v", err)
		}
		m, err := store.GetMembership(ctx, tontine.ID, carol.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if m.Status != models.MemberActive {
			t.Errorf("Expected active, got %s", m.Status)
		}
		if !m.UpdatedAt.Equal(activatedAt) {
			t.Errorf("Expected updated_at %v, got %v", activatedAt, m.UpdatedAt)
		}
	})

	t.Run("RemoveMember detaches the user", func(t *testing.T) {
		if err := store.RemoveMember(ctx, tontine.ID, carol.ID); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		n, err := store.CountMembers(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("CountMembers failed: %v", err)
		}
		if n != 2 {
			t.Errorf("Expected 2 members, got %d", n)
		}
		if err := store.RemoveMember(ctx, tontine.ID, carol.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound removing twice, got %v", err)
		}
	})
}

func TestLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")
	bob := createUser(t, store, "Bob", "+22890000002")
	tontine := createTontine(t, store, alice)
	addMember(t, store, tontine, bob, models.RoleMember)

	newPayment := func(user *models.User, round int) *models.Payment {
		return &models.Payment{
			ID:          uuid.New().String(),
			TontineID:   tontine.ID,
			UserID:      user.ID,
			RoundNumber: round,
			Amount:      decimal.RequireFromString("1000.50"),
			PaidAt:      baseTime,
			RecordedBy:  alice.ID,
		}
	}

	t.Run("payments are unique per member and round", func(t *testing.T) {
		if err := store.CreatePayment(ctx, newPayment(bob, 1)); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}
		err := store.CreatePayment(ctx, newPayment(bob, 1))
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}

		exists, err := store.PaymentExists(ctx, tontine.ID, bob.ID, 1)
		if err != nil || !exists {
			t.Errorf("Expected payment to exist, got %v, %v", exists, err)
		}
		exists, err = store.PaymentExists(ctx, tontine.ID, bob.ID, 2)
		if err != nil || exists {
			t.Errorf("Expected no payment for round 2, got %v, %v", exists, err)
		}
	})

	t.Run("SumRoundPayments keeps decimal precision", func(t *testing.T) {
		if err := store.CreatePayment(ctx, newPayment(alice, 1)); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}
		sum, err := store.SumRoundPayments(ctx, tontine.ID, 1)
		if err != nil {
			t.Fatalf("SumRoundPayments failed: %v", err)
		}
		if !sum.Equal(decimal.RequireFromString("2001")) {
			t.Errorf("Expected 2001, got %s", sum)
		}

		empty, err := store.SumRoundPayments(ctx, tontine.ID, 2)
		if err != nil {
			t.Fatalf("SumRoundPayments failed: %v", err)
		}
		if !empty.IsZero() {
			t.Errorf("Expected 0 for an empty round, got %s", empty)
		}
	})

	t.Run("penalties update to paid", func(t *testing.T) {
		p := &models.Penalty{
			ID:          uuid.New().String(),
			TontineID:   tontine.ID,
			UserID:      bob.ID,
			RoundNumber: 1,
			Amount:      decimal.NewFromInt(200),
			Status:      models.PenaltyUnpaid,
			CreatedAt:   baseTime,
		}
		if err := store.CreatePenalty(ctx, p); err != nil {
			t.Fatalf("CreatePenalty failed: %v", err)
		}

		paidAt := baseTime.Add(time.Hour)
		p.Status = models.PenaltyPaid
		p.PaidAt = &paidAt
		if err := store.UpdatePenalty(ctx, p); err != nil {
			t.Fatalf("UpdatePenalty failed: %v", err)
		}

		got, err := store.GetPenalty(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetPenalty failed: %v", err)
		}
		if got.Status != models.PenaltyPaid || got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
			t.Errorf("Unexpected penalty: %+v", got)
		}

		if _, err := store.GetPenalty(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteTontine cascades but keeps the activity log", func(t *testing.T) {
		round := 1
		entry := &models.ActivityEntry{
			ID:          uuid.New().String(),
			TontineID:   tontine.ID,
			UserID:      &bob.ID,
			Type:        models.ActivityPayment,
			Amount:      decimal.NewFromInt(1000),
			RoundNumber: &round,
			Description: "Contribution from Bob received for round 1.",
			CreatedAt:   baseTime,
		}
		if err := store.AppendActivity(ctx, entry); err != nil {
			t.Fatalf("AppendActivity failed: %v", err)
		}

		if err := store.DeleteTontine(ctx, tontine.ID); err != nil {
			t.Fatalf("DeleteTontine failed: %v", err)
		}

		payments, err := store.ListPayments(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("ListPayments failed: %v", err)
		}
		if len(payments) != 0 {
			t.Errorf("Expected payments to cascade, got %d", len(payments))
		}

		history, err := store.ListActivity(ctx, tontine.ID)
		if err != nil {
			t.Fatalf("ListActivity failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("Expected 1 activity entry, got %d", len(history))
		}
		if history[0].UserName != "Bob" || history[0].RoundNumber == nil || *history[0].RoundNumber != 1 {
			t.Errorf("Unexpected entry: %+v", history[0])
		}
	})
}

func TestInTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")
	tontine := createTontine(t, store, alice)

	boom := errors.New("boom")
	err := store.InGroupTx(ctx, tontine.ID, func(q storage.Queries) error {
		entry := &models.ActivityEntry{
			ID:          uuid.New().String(),
			TontineID:   tontine.ID,
			Type:        models.ActivityInfo,
			Description: "should not survive",
			CreatedAt:   baseTime,
		}
		if err := q.AppendActivity(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the callback error, got %v", err)
	}

	history, err := store.ListActivity(ctx, tontine.ID)
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected rollback to discard the entry, got %d entries", len(history))
	}
}

func TestConcurrentDuplicatePayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "+22890000001")
	tontine := createTontine(t, store, alice)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.InGroupTx(ctx, tontine.ID, func(q storage.Queries) error {
				exists, err := q.PaymentExists(ctx, tontine.ID, alice.ID, 1)
				if err != nil {
					return err
				}
				if exists {
					return storage.ErrConflict
				}
				return q.CreatePayment(ctx, &models.Payment{
					ID:          uuid.New().String(),
					TontineID:   tontine.ID,
					UserID:      alice.ID,
					RoundNumber: 1,
					Amount:      decimal.NewFromInt(1000),
					PaidAt:      baseTime,
					RecordedBy:  alice.ID,
				})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, storage.ErrConflict):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != attempts-1 {
		t.Errorf("Expected 1 success and %d conflicts, got %d and %d", attempts-1, successes, conflicts)
	}

	payments, err := store.ListPayments(ctx, tontine.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Errorf("Expected exactly 1 payment, got %d", len(payments))
	}
}

func TestGroupLocks(t *testing.T) {
	locks := newGroupLocks()

	unlockA := locks.lock("a")
	// A different key does not wait.
	unlockB := locks.lock("b")
	unlockB()

	acquired := make(chan struct{})
	go func() {
		unlock := locks.lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("Second lock on the same key acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second lock never acquired after release")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.byKey) != 0 {
		t.Errorf("Expected lock table to be empty, got %d entries", len(locks.byKey))
	}
}
