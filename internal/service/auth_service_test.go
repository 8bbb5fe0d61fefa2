package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tontine/internal/auth"
	"github.com/mmynk/tontine/internal/errs"
)

func newAuthService(t *testing.T) (*AuthService, *auth.JWTManager) {
	t.Helper()
	f := setup(t)
	jwtManager := auth.NewJWTManager("test-secret-0123456789", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(f.store).WithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(authenticator, jwtManager, f.store, logger), jwtManager
}

func TestRegisterAndLogin(t *testing.T) {
	svc, jwtManager := newAuthService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "  Ama  ", "+22890000001", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if session.User.Name != "Ama" || session.User.CountryCode != "+228" {
		t.Errorf("unexpected user: %+v", session.User)
	}
	claims, err := jwtManager.Validate(session.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.UserID != session.User.ID {
		t.Errorf("token subject = %s, want %s", claims.UserID, session.User.ID)
	}

	t.Run("duplicate phone", func(t *testing.T) {
		_, err := svc.Register(ctx, "Other", "+22890000001", "password123")
		assertKind(t, err, errs.KindConflict)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := svc.Register(ctx, "Kofi", "+22890000002", "short")
		assertKind(t, err, errs.KindInvalidInput)
	})

	t.Run("malformed phone", func(t *testing.T) {
		_, err := svc.Register(ctx, "Kofi", "90000002", "password123")
		assertKind(t, err, errs.KindInvalidInput)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.Register(ctx, " ", "+22890000003", "password123")
		assertKind(t, err, errs.KindInvalidInput)
	})

	t.Run("login with the right password", func(t *testing.T) {
		got, err := svc.Login(ctx, "+22890000001", "password123")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if got.User.ID != session.User.ID || got.Token == "" {
			t.Errorf("unexpected session: %+v", got)
		}
	})

	t.Run("login with the wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "+22890000001", "wrong-password")
		assertKind(t, err, errs.KindUnauthenticated)
	})

	t.Run("login with an unknown phone", func(t *testing.T) {
		_, err := svc.Login(ctx, "+22899999999", "password123")
		assertKind(t, err, errs.KindUnauthenticated)
	})

	t.Run("profile", func(t *testing.T) {
		user, err := svc.Profile(ctx, session.User.ID)
		if err != nil {
			t.Fatalf("Profile failed: %v", err)
		}
		if user.Phone != "+22890000001" {
			t.Errorf("unexpected profile: %+v", user)
		}

		_, err = svc.Profile(ctx, "nonexistent-id")
		assertKind(t, err, errs.KindUnauthenticated)
	})
}
