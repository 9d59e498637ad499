package costgate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/recipeforge/admission/internal/model"
)

type fakeStore struct {
	rows map[string]*model.RateLimitCounter
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*model.RateLimitCounter)}
}

func key(scope model.RateLimitScope, identifier string, periodStart time.Time) string {
	return string(scope) + "|" + identifier + "|" + periodStart.String()
}

func (f *fakeStore) Get(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (*model.RateLimitCounter, error) {
	return f.rows[key(scope, identifier, periodStart)], nil
}

func (f *fakeStore) Increment(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (int, error) {
	k := key(scope, identifier, periodStart)
	row, ok := f.rows[k]
	if !ok {
		row = &model.RateLimitCounter{Type: scope, Identifier: identifier, PeriodStart: periodStart}
		f.rows[k] = row
	}
	row.Count++
	return row.Count, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCostGateAllowsUnderLimits(t *testing.T) {
	gate := NewGate(newFakeStore(), newTestRedis(t), Limits{DailyGlobal: 10, HourlyGlobal: 5, DailyUser: 3}, testLogger())

	if apiErr := gate.Check(context.Background(), "user-1"); apiErr != nil {
		t.Fatalf("expected allow, got %v", apiErr)
	}
}

func TestCostGateHourlyGlobalBlocksFirst(t *testing.T) {
	store := newFakeStore()
	gate := NewGate(store, newTestRedis(t), Limits{DailyGlobal: 100, HourlyGlobal: 1, DailyUser: 100}, testLogger())

	gate.Record(context.Background(), "user-1")

	apiErr := gate.Check(context.Background(), "user-1")
	if apiErr == nil {
		t.Fatal("expected hourly limit to be hit")
	}
	if apiErr.Code != "HOURLY_LIMIT_REACHED" {
		t.Fatalf("expected HOURLY_LIMIT_REACHED, got %s", apiErr.Code)
	}
}

func TestCostGateDailyUserLimit(t *testing.T) {
	gate := NewGate(newFakeStore(), newTestRedis(t), Limits{DailyGlobal: 1000, HourlyGlobal: 1000, DailyUser: 1}, testLogger())

	gate.Record(context.Background(), "user-1")

	apiErr := gate.Check(context.Background(), "user-1")
	if apiErr == nil || apiErr.Code != "USER_DAILY_LIMIT_REACHED" {
		t.Fatalf("expected USER_DAILY_LIMIT_REACHED, got %v", apiErr)
	}

	// A different user is unaffected.
	if apiErr := gate.Check(context.Background(), "user-2"); apiErr != nil {
		t.Fatalf("expected user-2 to be unaffected, got %v", apiErr)
	}
}

func TestCostGateZeroLimitDisablesCheck(t *testing.T) {
	store := newFakeStore()
	gate := NewGate(store, newTestRedis(t), Limits{DailyGlobal: 0, HourlyGlobal: 0, DailyUser: 0}, testLogger())

	for i := 0; i < 5; i++ {
		gate.Record(context.Background(), "user-1")
	}
	if apiErr := gate.Check(context.Background(), "user-1"); apiErr != nil {
		t.Fatalf("zero limits should never block, got %v", apiErr)
	}
}

func TestCostGateCachesCountInRedis(t *testing.T) {
	store := newFakeStore()
	rdb := newTestRedis(t)
	gate := NewGate(store, rdb, Limits{DailyGlobal: 1000, HourlyGlobal: 1000, DailyUser: 1000}, testLogger())

	gate.Record(context.Background(), "user-1")
	if apiErr := gate.Check(context.Background(), "user-1"); apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}

	now := time.Now()
	cacheKey := cacheKeyFor(model.ScopeHourlyGlobal, "", now.Truncate(time.Hour))
	val, err := rdb.Get(context.Background(), cacheKey).Result()
	if err != nil {
		t.Fatalf("expected cache entry to exist: %v", err)
	}
	if val != "1" {
		t.Fatalf("expected cached count 1, got %s", val)
	}
}

func TestCostGateRecordInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	rdb := newTestRedis(t)
	gate := NewGate(store, rdb, Limits{DailyGlobal: 1000, HourlyGlobal: 1000, DailyUser: 1000}, testLogger())

	// Warm the cache with a stale value of 0.
	gate.Check(context.Background(), "user-1")
	gate.Record(context.Background(), "user-1")

	now := time.Now()
	cacheKey := cacheKeyFor(model.ScopeHourlyGlobal, "", now.Truncate(time.Hour))
	if _, err := rdb.Get(context.Background(), cacheKey).Result(); err != redis.Nil {
		t.Fatalf("expected cache entry to be invalidated after Record, err=%v", err)
	}
}
