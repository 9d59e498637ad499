// Package costgate implements the cost gate: global and per-user
// generation quotas backed by durable counters, fronted by a short-TTL
// Redis cache so a hot day doesn't hammer Postgres on every request.
package costgate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/model"
)

const cacheTTL = 5 * time.Second

// Store is the durable counter backing for the cost gate's three scopes.
type Store interface {
	Get(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (*model.RateLimitCounter, error)
	Increment(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (int, error)
}

// Limits configures the three quota ceilings. Zero disables a check.
type Limits struct {
	DailyGlobal  int
	HourlyGlobal int
	DailyUser    int
}

// Gate enforces global/user generation cost limits in most-specific-
// first order: hourly global, then daily global, then daily user.
type Gate struct {
	store  Store
	redis  *redis.Client
	limits Limits
	logger *slog.Logger
}

func NewGate(store Store, redisClient *redis.Client, limits Limits, logger *slog.Logger) *Gate {
	return &Gate{store: store, redis: redisClient, limits: limits, logger: logger}
}

// Check verifies the request would not exceed any configured quota. It
// does not increment: the admission controller calls Record once a
// billable request has succeeded.
func (g *Gate) Check(ctx context.Context, userID string) *apierr.Error {
	now := time.Now()

	if g.limits.HourlyGlobal > 0 {
		count, err := g.count(ctx, model.ScopeHourlyGlobal, "", time.Hour, now)
		if err != nil {
			g.logger.Warn("cost gate hourly lookup failed, failing open", "error", err)
		} else if count >= g.limits.HourlyGlobal {
			return apierr.New(http.StatusTooManyRequests, apierr.CodeHourlyLimitReached, "hourly generation limit reached")
		}
	}

	if g.limits.DailyGlobal > 0 {
		count, err := g.count(ctx, model.ScopeDailyGlobal, "", 24*time.Hour, now)
		if err != nil {
			g.logger.Warn("cost gate daily-global lookup failed, failing open", "error", err)
		} else {
			if count >= g.limits.DailyGlobal {
				return apierr.New(http.StatusTooManyRequests, apierr.CodeDailyLimitReached, "daily generation limit reached")
			}
			if count >= (g.limits.DailyGlobal*80)/100 {
				g.logger.Warn("daily global generation quota nearing exhaustion", "count", count, "limit", g.limits.DailyGlobal)
			}
		}
	}

	if g.limits.DailyUser > 0 && userID != "" {
		count, err := g.count(ctx, model.ScopeDailyUser, userID, 24*time.Hour, now)
		if err != nil {
			g.logger.Warn("cost gate daily-user lookup failed, failing open", "error", err)
		} else if count >= g.limits.DailyUser {
			return apierr.New(http.StatusTooManyRequests, apierr.CodeUserDailyLimitReached, "daily generation limit reached for this account")
		}
	}

	return nil
}

// Record increments all three durable counters. The admission controller
// calls it after a billable request has been persisted, next to the quota
// debit; a request that fails after passing Check is not counted.
func (g *Gate) Record(ctx context.Context, userID string) {
	now := time.Now()
	if _, err := g.store.Increment(ctx, model.ScopeHourlyGlobal, "", now.Truncate(time.Hour)); err != nil {
		g.logger.Warn("cost gate failed to record hourly-global count", "error", err)
	}
	if _, err := g.store.Increment(ctx, model.ScopeDailyGlobal, "", now.Truncate(24*time.Hour)); err != nil {
		g.logger.Warn("cost gate failed to record daily-global count", "error", err)
	}
	if userID != "" {
		if _, err := g.store.Increment(ctx, model.ScopeDailyUser, userID, now.Truncate(24*time.Hour)); err != nil {
			g.logger.Warn("cost gate failed to record daily-user count", "error", err)
		}
	}
	g.invalidate(ctx, model.ScopeHourlyGlobal, "", now.Truncate(time.Hour))
	g.invalidate(ctx, model.ScopeDailyGlobal, "", now.Truncate(24*time.Hour))
	if userID != "" {
		g.invalidate(ctx, model.ScopeDailyUser, userID, now.Truncate(24*time.Hour))
	}
}

func (g *Gate) count(ctx context.Context, scope model.RateLimitScope, identifier string, window time.Duration, now time.Time) (int, error) {
	periodStart := now.Truncate(window)
	cacheKey := cacheKeyFor(scope, identifier, periodStart)

	if g.redis != nil {
		if cached, err := g.redis.Get(ctx, cacheKey).Result(); err == nil {
			var n int
			if jsonErr := json.Unmarshal([]byte(cached), &n); jsonErr == nil {
				return n, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			g.logger.Warn("cost gate cache read failed", "error", err)
		}
	}

	row, err := g.store.Get(ctx, scope, identifier, periodStart)
	if err != nil {
		return 0, err
	}
	count := 0
	if row != nil {
		count = row.Count
	}

	if g.redis != nil {
		if encoded, err := json.Marshal(count); err == nil {
			if err := g.redis.Set(ctx, cacheKey, encoded, cacheTTL).Err(); err != nil {
				g.logger.Warn("cost gate cache write failed", "error", err)
			}
		}
	}

	return count, nil
}

func (g *Gate) invalidate(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) {
	if g.redis == nil {
		return
	}
	if err := g.redis.Del(ctx, cacheKeyFor(scope, identifier, periodStart)).Err(); err != nil {
		g.logger.Warn("cost gate cache invalidation failed", "error", err)
	}
}

func cacheKeyFor(scope model.RateLimitScope, identifier string, periodStart time.Time) string {
	return "costgate:" + string(scope) + ":" + identifier + ":" + strconv.FormatInt(periodStart.Unix(), 10)
}
