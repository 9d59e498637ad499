package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeRateLimitStore struct {
	deleted int64
	err     error
	cutoffs []time.Time
}

func (f *fakeRateLimitStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	s := NewService(&fakeRateLimitStore{}, testLogger(), Config{})
	if s.retention != 7*24*time.Hour {
		t.Fatalf("unexpected default retention: %v", s.retention)
	}
	if s.interval != 5*time.Minute {
		t.Fatalf("unexpected default interval: %v", s.interval)
	}
	if s.tempDir == "" {
		t.Fatal("expected a default temp dir")
	}
}

func TestNewServiceKeepsExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	s := NewService(&fakeRateLimitStore{}, testLogger(), Config{
		TempDir:         dir,
		Retention:       time.Hour,
		CleanupInterval: time.Minute,
	})
	if s.tempDir != dir || s.retention != time.Hour || s.interval != time.Minute {
		t.Fatalf("expected explicit config to be kept, got %+v", s)
	}
}

func TestRunSweepDeletesOldCounters(t *testing.T) {
	store := &fakeRateLimitStore{deleted: 3}
	s := NewService(store, testLogger(), Config{TempDir: t.TempDir()})

	s.runSweep(context.Background())

	if len(store.cutoffs) != 1 {
		t.Fatalf("expected DeleteOlderThan to be called once, got %d", len(store.cutoffs))
	}
}

func TestRunSweepToleratesStoreError(t *testing.T) {
	store := &fakeRateLimitStore{err: errors.New("db down")}
	s := NewService(store, testLogger(), Config{TempDir: t.TempDir()})

	s.runSweep(context.Background())
}

func TestCleanupOrphanedAudioRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "audio_old.mp3")
	if err := os.WriteFile(oldFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, old, old); err != nil {
		t.Fatal(err)
	}

	newFile := filepath.Join(dir, "audio_new.mp3")
	if err := os.WriteFile(newFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewService(&fakeRateLimitStore{}, testLogger(), Config{TempDir: dir})
	deleted, err := s.cleanupOrphanedAudio()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected exactly one deleted file, got %d", deleted)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatal("expected the old file to be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Fatal("expected the new file to survive")
	}
}

func TestCleanupOrphanedAudioIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	unrelated := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(unrelated, old, old); err != nil {
		t.Fatal(err)
	}

	s := NewService(&fakeRateLimitStore{}, testLogger(), Config{TempDir: dir})
	deleted, err := s.cleanupOrphanedAudio()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected unrelated files to be left alone, got %d deleted", deleted)
	}
}
