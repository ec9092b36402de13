package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var _ Provider = (*SupabaseClient)(nil)

// SupabaseConfig points the client at a Supabase project.
type SupabaseConfig struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// SupabaseClient talks to the GoTrue endpoints of a Supabase project.
type SupabaseClient struct {
	http *resty.Client
}

func NewSupabaseClient(cfg SupabaseConfig) (*SupabaseClient, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if base == "" || cfg.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.
		SetBaseURL(base+"/auth/v1").
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &SupabaseClient{http: client}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// gotrueSession covers both reply shapes: a session with a nested user, and
// the bare user returned by sign-up when confirmation is pending.
type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         *gotrueUser `json:"user"`
	ID           string      `json:"id"`
	Email        string      `json:"email"`
}

func (g *gotrueSession) toSession() *Session {
	s := &Session{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresIn:    g.ExpiresIn,
	}
	if g.User != nil {
		s.User = Identity{ID: g.User.ID, Email: g.User.Email}
	} else {
		s.User = Identity{ID: g.ID, Email: g.Email}
	}
	return s
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges email and password for a session.
func (c *SupabaseClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	result := new(gotrueSession)
	apiErr := new(gotrueError)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(result).
		SetError(apiErr).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", &APIError{Status: resp.StatusCode(), Message: apiErr.text()})
	}
	return result.toSession(), nil
}

// SignUp registers a new account.
func (c *SupabaseClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	result := new(gotrueSession)
	apiErr := new(gotrueError)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(result).
		SetError(apiErr).
		Post("/signup")
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sign up: %w", &APIError{Status: resp.StatusCode(), Message: apiErr.text()})
	}
	return result.toSession(), nil
}

// SignOut revokes the session behind accessToken.
func (c *SupabaseClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrInvalidToken
	}
	apiErr := new(gotrueError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetError(apiErr).
		Post("/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return ErrInvalidToken
	}
	if resp.IsError() {
		return fmt.Errorf("sign out: %w", &APIError{Status: resp.StatusCode(), Message: apiErr.text()})
	}
	return nil
}
