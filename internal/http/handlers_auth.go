package http

import (
	"errors"
	"net/http"
	"strings"

	"profitcalc/internal/auth"
	"profitcalc/internal/log"
)

func readCredentials(r *http.Request) (email, password string, errResp *ResponseBuilder) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		return "", "", errResp
	}
	email = strings.ToLower(p.Get("email"))
	password, _ = p.Lookup("password")
	if email == "" || password == "" {
		return "", "", BadRequestError("Email and password are required")
	}
	return email, password, nil
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, log.OpSignIn, http.StatusOK, func(email, password string) (*auth.Session, error) {
		return s.identity.SignIn(r.Context(), email, password)
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, log.OpSignUp, http.StatusCreated, func(email, password string) (*auth.Session, error) {
		return s.identity.SignUp(r.Context(), email, password)
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, op string, status int, call func(email, password string) (*auth.Session, error)) {
	if s.identity == nil {
		ServiceUnavailableError("Sign-in is not configured").Write(w)
		return
	}
	email, password, errResp := readCredentials(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	sess, err := call(email, password)
	if err != nil {
		var apiErr *auth.APIError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.InfoContext(r.Context(), "Sign-in rejected", log.FieldOperation, op)
			UnauthorizedError("Invalid email or password").Write(w)
		case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
			logger.InfoContext(r.Context(), "Identity provider refused request",
				log.FieldOperation, op,
				log.FieldStatusCode, apiErr.Status)
			ErrorResponse(apiErr.Status, apiErr.Message).Write(w)
		default:
			log.NewStructuredLogger(logger).LogError(r.Context(), "Identity provider call failed", err,
				log.ErrorTypeUpstream, log.ComponentAuth, op, nil)
			BadGatewayError("Identity provider unavailable").Write(w)
		}
		return
	}

	logger.InfoContext(r.Context(), "Authenticated",
		log.FieldOperation, op,
		log.FieldOwner, sess.User.ID)
	NewResponse().Status(status).JSON(sess).Write(w)
}

// handleSignOut revokes the token upstream when a provider is configured
// and drops the caller's in-memory session either way.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)

	if s.identity != nil {
		if err := s.identity.SignOut(r.Context(), bearerToken(r)); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			logger.WarnContext(r.Context(), "Upstream sign-out failed",
				log.FieldOperation, log.OpSignOut,
				log.FieldError, err)
		}
	}
	s.registry.Discard(id.ID)
	logger.InfoContext(r.Context(), "Signed out", log.FieldOperation, log.OpSignOut)
	NewResponse().Status(http.StatusNoContent).Write(w)
}
