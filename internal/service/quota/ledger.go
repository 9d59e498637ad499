// Package quota implements the quota ledger: premium status plus
// free-generation accounting, debited exactly once per billable request.
package quota

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

// Store is the profile row backing for the ledger.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	DecrementFreeGenerations(ctx context.Context, userID uuid.UUID) (int, error)
}

type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Decision is the result of canGenerate.
type Decision struct {
	Allowed       bool
	IsPremium     bool
	FreeRemaining int
}

// CanGenerate reports whether userID may consume a billable generation.
func (l *Ledger) CanGenerate(ctx context.Context, userID uuid.UUID) (Decision, error) {
	profile, err := l.store.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:       profile.IsPremium || profile.FreeGenerationsRemaining > 0,
		IsPremium:     profile.IsPremium,
		FreeRemaining: profile.FreeGenerationsRemaining,
	}, nil
}

// Debit decrements the free-generation counter for a non-premium user.
// Never raises: a failed debit degrades revenue protection, not the
// correctness of the recipe already returned to the caller.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, isPremium bool) {
	if isPremium {
		return
	}
	if _, err := l.store.DecrementFreeGenerations(ctx, userID); err != nil {
		l.logger.Warn("quota ledger failed to debit free generation", "error", err, "user_id", userID)
	}
}
