package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/service/auth"
)

const authTestSecret = "test-secret-for-middleware-auth"

func signToken(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(authTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthAttachesIdentityOnValidToken(t *testing.T) {
	authenticator := auth.NewAuthenticator(authTestSecret, "")
	userID := uuid.New().String()

	var gotIdentity bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		gotIdentity = identity != nil && identity.ID.String() == userID
		w.WriteHeader(http.StatusOK)
	})

	h := Auth(authenticator)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !gotIdentity {
		t.Fatal("expected the identity to be attached to the request context")
	}
}

func TestAuthRejectsMissingAuthorizationHeader(t *testing.T) {
	authenticator := auth.NewAuthenticator(authTestSecret, "")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called without credentials")
	})

	h := Auth(authenticator)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	authenticator := auth.NewAuthenticator(authTestSecret, "")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called for a non-bearer scheme")
	})

	h := Auth(authenticator)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetIdentityReturnsNilWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetIdentity(req.Context()) != nil {
		t.Fatal("expected no identity on a bare request context")
	}
}
