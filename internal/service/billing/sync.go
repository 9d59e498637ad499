// Package billing runs the background premium-status sync that feeds the
// quota ledger's is_premium flag. It is provider-neutral: the sync
// depends only on the Provider interface below, not on any particular
// REST shape.
package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Provider reports whether an app user currently holds an active
// premium entitlement with the billing vendor.
type Provider interface {
	IsPremium(ctx context.Context, appUserID string) (bool, error)
}

// ProfileStore is the subset of the profile repository the sync needs.
type ProfileStore interface {
	ListAll(ctx context.Context) ([]uuid.UUID, error)
	SetPremium(ctx context.Context, userID uuid.UUID, isPremium bool) error
}

// Syncer periodically refreshes every known profile's premium flag
// against the billing provider.
type Syncer struct {
	store    ProfileStore
	provider Provider
	logger   *slog.Logger
	interval time.Duration
}

func NewSyncer(store ProfileStore, provider Provider, interval time.Duration, logger *slog.Logger) *Syncer {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Syncer{store: store, provider: provider, interval: interval, logger: logger}
}

// Start runs the sync immediately, then on s.interval, until ctx is
// cancelled. A single user's provider error is logged and skipped; it
// never aborts the rest of the sweep.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("starting billing status sync", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("billing status sync stopping")
			return
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	userIDs, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Error("billing sync: could not list profiles", "error", err)
		return
	}

	var updated int
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		isPremium, err := s.provider.IsPremium(ctx, userID.String())
		if err != nil {
			s.logger.Warn("billing sync: provider lookup failed", "user_id", userID, "error", err)
			continue
		}

		if err := s.store.SetPremium(ctx, userID, isPremium); err != nil {
			s.logger.Warn("billing sync: could not persist premium flag", "user_id", userID, "error", err)
			continue
		}
		updated++
	}

	s.logger.Info("billing status sync complete", "checked", len(userIDs), "updated", updated)
}
