package http

import (
	"errors"
	"net/http"

	"profitcalc/internal/billing"
	"profitcalc/internal/log"
)

type urlResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.billing == nil {
		ServiceUnavailableError("Billing is not configured").Write(w)
		return
	}
	url, err := s.billing.CreateCheckoutSession(r.Context(), billing.Origin(r))
	if err != nil {
		s.billingFailed(w, r, log.OpCheckout, err)
		return
	}
	NewResponse().JSON(urlResponse{URL: url}).Write(w)
}

// handlePortal opens the billing portal for the email in the body, or the
// signed-in user's email when the body names none.
func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	if s.billing == nil {
		ServiceUnavailableError("Billing is not configured").Write(w)
		return
	}
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	email := p.Get("email")
	if email == "" {
		id, _ := IdentityFrom(r.Context())
		email = id.Email
	}
	if email == "" {
		BadRequestError("Missing email").Write(w)
		return
	}

	url, err := s.billing.CreatePortalSession(r.Context(), billing.Origin(r), email)
	if err != nil {
		s.billingFailed(w, r, log.OpPortal, err)
		return
	}
	NewResponse().JSON(urlResponse{URL: url}).Write(w)
}

func (s *Server) billingFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, billing.ErrMissingEmail):
		BadRequestError("Missing email").Write(w)
		return
	case errors.Is(err, billing.ErrNotConfigured):
		ServiceUnavailableError("Billing is not configured").Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Billing request failed", err,
		log.ErrorTypeUpstream, log.ComponentBilling, op, nil)
	BadGatewayError(err.Error()).Write(w)
}
