// Package auth signs users in against Supabase and verifies the access
// tokens it issues.
package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotConfigured      = errors.New("identity provider not configured")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Identity is the signed-in user. ID doubles as the storage owner.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what a successful sign-in or sign-up returns. AccessToken is
// empty when the provider requires email confirmation first.
type Session struct {
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	ExpiresIn    int      `json:"expiresIn,omitempty"`
	User         Identity `json:"user"`
}

// Provider is the identity collaborator.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// APIError is a non-success reply from the identity provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider returned status %d", e.Status)
	}
	return fmt.Sprintf("identity provider returned status %d: %s", e.Status, e.Message)
}
