package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

type fakeStore struct {
	profile       *model.Profile
	getErr        error
	decrementErr  error
	decrementCalls int
}

func (f *fakeStore) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.profile, nil
}

func (f *fakeStore) DecrementFreeGenerations(ctx context.Context, userID uuid.UUID) (int, error) {
	f.decrementCalls++
	if f.decrementErr != nil {
		return 0, f.decrementErr
	}
	f.profile.FreeGenerationsRemaining--
	return f.profile.FreeGenerationsRemaining, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCanGeneratePremiumAlwaysAllowed(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: true, FreeGenerationsRemaining: 0}}
	ledger := NewLedger(store, testLogger())

	decision, err := ledger.CanGenerate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || !decision.IsPremium {
		t.Fatalf("expected premium user to be allowed, got %+v", decision)
	}
}

func TestCanGenerateFreeUserWithRemaining(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: false, FreeGenerationsRemaining: 2}}
	ledger := NewLedger(store, testLogger())

	decision, err := ledger.CanGenerate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || decision.FreeRemaining != 2 {
		t.Fatalf("expected allowed with 2 remaining, got %+v", decision)
	}
}

func TestCanGenerateFreeUserExhausted(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: false, FreeGenerationsRemaining: 0}}
	ledger := NewLedger(store, testLogger())

	decision, err := ledger.CanGenerate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected exhausted free user to be denied")
	}
}

func TestCanGeneratePropagatesStoreError(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db down")}
	ledger := NewLedger(store, testLogger())

	_, err := ledger.CanGenerate(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestDebitSkipsPremiumUsers(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: true, FreeGenerationsRemaining: 5}}
	ledger := NewLedger(store, testLogger())

	ledger.Debit(context.Background(), uuid.New(), true)

	if store.decrementCalls != 0 {
		t.Fatalf("expected no decrement call for premium user, got %d", store.decrementCalls)
	}
}

func TestDebitDecrementsFreeUsers(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: false, FreeGenerationsRemaining: 3}}
	ledger := NewLedger(store, testLogger())

	ledger.Debit(context.Background(), uuid.New(), false)

	if store.decrementCalls != 1 {
		t.Fatalf("expected one decrement call, got %d", store.decrementCalls)
	}
	if store.profile.FreeGenerationsRemaining != 2 {
		t.Fatalf("expected remaining to drop to 2, got %d", store.profile.FreeGenerationsRemaining)
	}
}

func TestDebitNeverPanicsOnStoreError(t *testing.T) {
	store := &fakeStore{profile: &model.Profile{IsPremium: false, FreeGenerationsRemaining: 1}, decrementErr: errors.New("db down")}
	ledger := NewLedger(store, testLogger())

	ledger.Debit(context.Background(), uuid.New(), false)
}
