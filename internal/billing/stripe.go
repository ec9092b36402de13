// Package billing starts Stripe subscription checkouts and customer portal
// sessions.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultAPIURL = "https://api.stripe.com"
	APIVersion    = "2024-06-20"
)

var (
	ErrMissingEmail  = errors.New("missing email")
	ErrNotConfigured = errors.New("billing not configured")
)

// Service is the billing collaborator used by the HTTP layer.
type Service interface {
	CreateCheckoutSession(ctx context.Context, origin string) (string, error)
	CreatePortalSession(ctx context.Context, origin, email string) (string, error)
}

var _ Service = (*StripeClient)(nil)

type StripeConfig struct {
	SecretKey string
	PriceID   string
	APIURL    string
	Timeout   time.Duration
}

// StripeClient calls the Stripe REST API with form-encoded requests.
type StripeClient struct {
	http    *resty.Client
	priceID string
}

func NewStripeClient(cfg StripeConfig) (*StripeClient, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimSuffix(strings.TrimSpace(cfg.APIURL), "/")
	if base == "" {
		base = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New()
	client.
		SetBaseURL(base+"/v1").
		SetAuthToken(cfg.SecretKey).
		SetHeader("Stripe-Version", APIVersion).
		SetTimeout(timeout)

	return &StripeClient{http: client, priceID: cfg.PriceID}, nil
}

// StripeError is a non-success reply from Stripe.
type StripeError struct {
	Status  int
	Type    string
	Message string
}

func (e *StripeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe returned status %d", e.Status)
	}
	return fmt.Sprintf("stripe returned status %d: %s", e.Status, e.Message)
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type urlObject struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type customerList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateCheckoutSession starts a one-seat subscription checkout and returns
// the hosted page URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, origin string) (string, error) {
	if c.priceID == "" {
		return "", fmt.Errorf("%w: missing price id", ErrNotConfigured)
	}
	form := map[string]string{
		"mode":                    "subscription",
		"payment_method_types[0]": "card",
		"line_items[0][price]":    c.priceID,
		"line_items[0][quantity]": "1",
		"success_url":             origin + "/?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		"cancel_url":              origin + "/?checkout=cancelled",
	}
	session := new(urlObject)
	if err := c.post(ctx, "/checkout/sessions", form, session); err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession finds or creates the customer for email and returns
// a billing portal URL for them.
func (c *StripeClient) CreatePortalSession(ctx context.Context, origin, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrMissingEmail
	}

	customerID, err := c.findOrCreateCustomer(ctx, email)
	if err != nil {
		return "", err
	}

	form := map[string]string{
		"customer":   customerID,
		"return_url": origin + "/?portal=done",
	}
	portal := new(urlObject)
	if err := c.post(ctx, "/billing_portal/sessions", form, portal); err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return portal.URL, nil
}

func (c *StripeClient) findOrCreateCustomer(ctx context.Context, email string) (string, error) {
	list := new(customerList)
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"email": email, "limit": "1"}).
		SetResult(list).
		SetError(apiErr).
		Get("/customers")
	if err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("list customers: %w", toStripeError(resp, apiErr))
	}
	if len(list.Data) > 0 {
		return list.Data[0].ID, nil
	}

	customer := new(urlObject)
	if err := c.post(ctx, "/customers", map[string]string{"email": email}, customer); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customer.ID, nil
}

func (c *StripeClient) post(ctx context.Context, path string, form map[string]string, result any) error {
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(result).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return toStripeError(resp, apiErr)
	}
	return nil
}

func toStripeError(resp *resty.Response, apiErr *apiError) *StripeError {
	return &StripeError{
		Status:  resp.StatusCode(),
		Type:    apiErr.Error.Type,
		Message: apiErr.Error.Message,
	}
}

// Origin rebuilds the public site origin from proxy headers, defaulting
// the scheme to https.
func Origin(r *http.Request) string {
	proto := firstValue(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "https"
	}
	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}
