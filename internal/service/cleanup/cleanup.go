// Package cleanup runs the background retention sweep: durable rate-gate
// and cost-gate counters older than their retention window, plus any
// audio temp file a pipeline run failed to remove after a crash.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RateLimitStore trims expired rate-gate/cost-gate counter rows.
type RateLimitStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the sweep's tunables.
type Config struct {
	TempDir         string        // directory holding orphaned audio_* files
	Retention       time.Duration // counter rows older than this are deleted
	CleanupInterval time.Duration // how often the sweep runs
}

// Service runs the periodic retention sweep in the background.
type Service struct {
	store     RateLimitStore
	logger    *slog.Logger
	tempDir   string
	retention time.Duration
	interval  time.Duration
}

func NewService(store RateLimitStore, logger *slog.Logger, cfg Config) *Service {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Retention == 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	return &Service{
		store:     store,
		logger:    logger,
		tempDir:   cfg.TempDir,
		retention: cfg.Retention,
		interval:  cfg.CleanupInterval,
	}
}

// Start runs the sweep immediately, then on cfg.CleanupInterval, until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("starting retention sweep",
		"temp_dir", s.tempDir,
		"retention", s.retention,
		"interval", s.interval,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-ctx.Done():
			s.logger.Info("retention sweep stopping")
			return
		}
	}
}

func (s *Service) runSweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("rate limit counter sweep failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("swept expired rate limit counters", "count", deleted)
	}

	filesDeleted, err := s.cleanupOrphanedAudio()
	if err != nil {
		s.logger.Warn("orphaned audio sweep failed", "error", err)
	} else if filesDeleted > 0 {
		s.logger.Info("cleaned up orphaned audio files", "count", filesDeleted)
	}
}

// cleanupOrphanedAudio removes audio_* temp files older than one hour —
// a platform handler's deferred Cleanup should already have removed
// these, so survivors are leftovers from a crashed pipeline run.
func (s *Service) cleanupOrphanedAudio() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.tempDir, "audio_*"))
	if err != nil {
		return 0, err
	}

	const maxAge = time.Hour
	var deleted int
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to delete orphaned audio file", "path", path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
