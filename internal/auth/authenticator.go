package auth

import (
	"context"

	"github.com/mmynk/tontine/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, OTP, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account with the given phone and credential.
	Register(ctx context.Context, name, phone, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, phone, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
