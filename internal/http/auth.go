package http

import (
	"context"
	"net/http"

	"profitcalc/internal/auth"
	"profitcalc/internal/log"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller verified by requireAuth.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// requireAuth verifies the bearer token and scopes the request logger to
// the caller. The identity's ID is the owner key for storage.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError("Missing bearer token").Write(w)
			return
		}
		if s.verifier == nil {
			ServiceUnavailableError("Authentication is not configured").Write(w)
			return
		}
		id, err := s.verifier.Verify(token)
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Token rejected",
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err)
			UnauthorizedError("Invalid or expired token").Write(w)
			return
		}

		ctx := withIdentity(r.Context(), id)
		ctx = log.NewContext(ctx, log.FromContext(ctx).WithOwner(id.ID))
		next(w, r.WithContext(ctx))
	}
}
