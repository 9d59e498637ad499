// Package auth implements the Authenticator: bearer-token
// verification against a symmetric secret with a pinned signing method.
package auth

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/model"
)

// Claims is the shape of a Supabase-issued access token this service
// verifies locally. Only the fields the core needs are decoded.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens with a pinned HMAC algorithm and a
// configured issuer.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator builds an Authenticator. An empty secret is a
// configuration error surfaced lazily on the first Authenticate call
// rather than at construction time.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Authenticate verifies the bearer credential and returns the identity
// attached to the request scope on success.
func (a *Authenticator) Authenticate(bearer string) (*model.Identity, *apierr.Error) {
	if len(a.secret) == 0 {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeConfigError, "authenticator is misconfigured")
	}
	if bearer == "" {
		return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthMissing, "missing bearer credential")
	}

	token, err := jwt.ParseWithClaims(bearer, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthExpired, "bearer token has expired")
		}
		return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthInvalid, "invalid bearer token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthInvalid, "invalid bearer token")
	}

	if a.issuer != "" && claims.Issuer != a.issuer {
		return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthInvalid, "invalid bearer token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.New(http.StatusUnauthorized, apierr.CodeAuthInvalid, "invalid bearer token subject")
	}

	return &model.Identity{ID: id, Email: claims.Email, Role: claims.Role}, nil
}
