package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/recipeforge/admission/internal/model"
	"github.com/recipeforge/admission/internal/pkg/response"
	"github.com/recipeforge/admission/internal/service/auth"
)

const identityKey contextKey = "identity"

// Auth wires the Authenticator as HTTP middleware: verifies the bearer
// credential and attaches the resulting identity to the request
// context, or writes the mapped error response and stops the chain.
func Auth(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := extractBearer(r)

			identity, apiErr := authenticator.Authenticate(bearer)
			if apiErr != nil {
				response.APIError(w, apiErr)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetIdentity retrieves the authenticated identity from context.
func GetIdentity(ctx context.Context) *model.Identity {
	identity, ok := ctx.Value(identityKey).(*model.Identity)
	if !ok {
		return nil
	}
	return identity
}
