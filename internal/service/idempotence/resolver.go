// Package idempotence implements the idempotence resolver: owner
// lookup, then global lookup, by normalized source URL.
package idempotence

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

// Store is the recipe lookup backing for the resolver.
type Store interface {
	FindOwnerMatch(ctx context.Context, userID uuid.UUID, normalizedURL string) (*model.Recipe, error)
	FindGlobalMatch(ctx context.Context, normalizedURL string) (*model.Recipe, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Normalize returns the substring of url before its first '?'.
func Normalize(url string) string {
	if idx := strings.Index(url, "?"); idx != -1 {
		return url[:idx]
	}
	return url
}

// FindOwnerMatch returns the most recent recipe owned by userID for
// this normalized URL, if any.
func (r *Resolver) FindOwnerMatch(ctx context.Context, userID uuid.UUID, normalizedURL string) (*model.Recipe, error) {
	return r.store.FindOwnerMatch(ctx, userID, normalizedURL)
}

// FindGlobalMatch returns the most recent recipe owned by anyone for
// this normalized URL, if any.
func (r *Resolver) FindGlobalMatch(ctx context.Context, normalizedURL string) (*model.Recipe, error) {
	return r.store.FindGlobalMatch(ctx, normalizedURL)
}
