package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/tontine/internal/auth"
	"github.com/mmynk/tontine/internal/errs"
	"github.com/mmynk/tontine/internal/models"
	"github.com/mmynk/tontine/internal/storage"
)

// AuthService handles registration, login and the caller's profile.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         auth.UserStorage
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users auth.UserStorage, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Session is a user with a freshly issued bearer token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, name, phone, password string) (*Session, error) {
	s.logger.Info("Register request", "phone", phone)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation(map[string]string{"name": "required"})
	}

	user, err := s.authenticator.Register(ctx, name, phone, password)
	if err != nil {
		s.logger.Warn("Registration failed", "phone", phone, "error", err)
		switch {
		case errors.Is(err, auth.ErrPhoneExists):
			return nil, errs.Wrap(errs.KindConflict, err, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, &errs.Error{Kind: errs.KindInvalidInput, Msg: err.Error(), Fields: map[string]string{"password": "min"}}
		case errors.Is(err, auth.ErrInvalidPhone):
			return nil, &errs.Error{Kind: errs.KindInvalidInput, Msg: err.Error(), Fields: map[string]string{"phone": "e164"}}
		}
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*Session, error) {
	s.logger.Info("Login request", "phone", phone)

	if phone == "" || password == "" {
		return nil, errs.Wrap(errs.KindInvalidInput, auth.ErrInvalidCredentials, "phone and password are required")
	}

	user, err := s.authenticator.Authenticate(ctx, phone, password)
	if err != nil {
		s.logger.Warn("Login failed", "phone", phone, "error", err)
		return nil, errs.Wrap(errs.KindUnauthenticated, err, auth.ErrInvalidCredentials.Error())
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// Logout is a no-op: tokens are stateless and discarded by the client.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.logger.Info("Logout request", "user_id", userID)
}

// Profile returns the authenticated user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errs.Wrap(errs.KindUnauthenticated, auth.ErrMissingToken, auth.ErrMissingToken.Error())
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.Wrap(errs.KindUnauthenticated, err, "account no longer exists")
		}
		s.logger.Error("Profile lookup failed", "user_id", userID, "error", err)
		return nil, err
	}
	return user, nil
}
