package auth

import (
	"context"

	"github.com/tallyup/tallyup/internal/models"
)

// Authenticator is the interface for account registration and login.
// An implementation owns the credential format; the service layer only
// ever sees users and errors.
type Authenticator interface {
	// Register creates a new account. Returns the created user or an
	// error (ErrEmailExists, ErrWeakPassword) when registration fails.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies credentials and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential against the
	// implementation's requirements before any storage work happens.
	ValidateCredential(credential string) error
}
