package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	a := NewAuthenticator("shared-secret", "")
	token := sign(t, "shared-secret", Claims{
		Email: "chef@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, apiErr := a.Authenticate(token)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if identity.ID != userID {
		t.Fatalf("expected user id %s, got %s", userID, identity.ID)
	}
	if identity.Email != "chef@example.com" || identity.Role != "authenticated" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestAuthenticateRejectsEmptyBearer(t *testing.T) {
	a := NewAuthenticator("shared-secret", "")
	_, apiErr := a.Authenticate("")
	if apiErr == nil {
		t.Fatal("expected an error for an empty bearer token")
	}
	if apiErr.Code != "AUTH_MISSING" {
		t.Fatalf("expected AUTH_MISSING, got %s", apiErr.Code)
	}
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	a := NewAuthenticator("shared-secret", "")
	token := sign(t, "wrong-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.New().String()},
	})

	_, apiErr := a.Authenticate(token)
	if apiErr == nil {
		t.Fatal("expected an error for a token signed with a different secret")
	}
	if apiErr.Code != "AUTH_INVALID" {
		t.Fatalf("expected AUTH_INVALID, got %s", apiErr.Code)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	a := NewAuthenticator("shared-secret", "")
	token := sign(t, "shared-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, apiErr := a.Authenticate(token)
	if apiErr == nil {
		t.Fatal("expected an error for an expired token")
	}
	if apiErr.Code != "AUTH_EXPIRED" {
		t.Fatalf("expected AUTH_EXPIRED, got %s", apiErr.Code)
	}
}

func TestAuthenticateRejectsWrongIssuer(t *testing.T) {
	a := NewAuthenticator("shared-secret", "https://expected.example.com/auth/v1")
	token := sign(t, "shared-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.New().String(),
			Issuer:  "https://unexpected.example.com/auth/v1",
		},
	})

	_, apiErr := a.Authenticate(token)
	if apiErr == nil {
		t.Fatal("expected an error for a mismatched issuer")
	}
}

func TestAuthenticateRejectsNonUUIDSubject(t *testing.T) {
	a := NewAuthenticator("shared-secret", "")
	token := sign(t, "shared-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
	})

	_, apiErr := a.Authenticate(token)
	if apiErr == nil {
		t.Fatal("expected an error for a non-UUID subject")
	}
}

func TestAuthenticateRejectsWhenSecretUnconfigured(t *testing.T) {
	a := NewAuthenticator("", "")
	_, apiErr := a.Authenticate("anything")
	if apiErr == nil || apiErr.Code != "CONFIG_ERROR" {
		t.Fatalf("expected CONFIG_ERROR, got %+v", apiErr)
	}
}
