// Package ratelimit implements the rate gate: a three-scope
// sliding-minute limiter (global, IP, user) with an in-process block
// fast path mirrored to/from a durable store.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/model"
)

// Scope is one of the three independent limiter scopes within a profile.
type Scope struct {
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration // 0 means "no sticky block": exceeding just denies this request
}

// Profile groups the three scopes evaluated, in order, for an endpoint.
type Profile struct {
	Global Scope
	IP     Scope
	User   Scope
}

// StandardProfile backs /analyze.
var StandardProfile = Profile{
	Global: Scope{MaxRequests: 100, Window: time.Minute},
	IP:     Scope{MaxRequests: 20, Window: time.Minute, BlockDuration: 10 * time.Minute},
	User:   Scope{MaxRequests: 10, Window: time.Minute, BlockDuration: 5 * time.Minute},
}

// StrictProfile backs /generate.
var StrictProfile = Profile{
	Global: Scope{MaxRequests: 50, Window: time.Minute},
	IP:     Scope{MaxRequests: 10, Window: time.Minute, BlockDuration: 15 * time.Minute},
	User:   Scope{MaxRequests: 5, Window: time.Minute, BlockDuration: 15 * time.Minute},
}

// Store is the durable counter/block backing for IP and user scopes.
// The global scope never touches it; it stays purely in-process.
type Store interface {
	Get(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (*model.RateLimitCounter, error)
	Increment(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (int, error)
	SetBlock(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart, blockedUntil time.Time) error
}

type bucket struct {
	windowStart  time.Time
	count        int
	blockedUntil time.Time
}

// Gate evaluates global → IP → user scopes in order for each request.
type Gate struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket // key: "scope:identifier"
}

func NewGate(store Store, logger *slog.Logger) *Gate {
	return &Gate{store: store, logger: logger, buckets: make(map[string]*bucket)}
}

// Decision carries the headers the HTTP layer should set for the user
// scope, the only scope that surfaces rate-limit headers on an allow.
type Decision struct {
	Limit     int
	Remaining int
	Reset     int64 // unix seconds
}

// Check runs the three scopes in order. On denial it returns a populated
// *apierr.Error (with Retry-After already in Fields where applicable) and
// a nil Decision. On allow it returns the user-scope Decision.
func (g *Gate) Check(ctx context.Context, profile Profile, userID, ip string) (*Decision, *apierr.Error) {
	if apiErr := g.checkGlobal(profile.Global); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := g.checkDurableScope(ctx, model.ScopeIPMinute, ip, profile.IP, apierr.CodeIPRateLimited, apierr.CodeIPBlocked); apiErr != nil {
		return nil, apiErr
	}
	decision, apiErr := g.checkUserScope(ctx, userID, profile.User)
	if apiErr != nil {
		return nil, apiErr
	}
	return decision, nil
}

func (g *Gate) checkGlobal(scope Scope) *apierr.Error {
	key := "global:"
	now := time.Now()

	g.mu.Lock()
	b, ok := g.buckets[key]
	if !ok || now.Sub(b.windowStart) >= scope.Window {
		b = &bucket{windowStart: now, count: 0}
		g.buckets[key] = b
	}
	b.count++
	exceeded := b.count > scope.MaxRequests
	g.mu.Unlock()

	if exceeded {
		return apierr.New(http.StatusServiceUnavailable, apierr.CodeServerOverloaded, "server is overloaded, try again shortly")
	}
	return nil
}

func (g *Gate) checkDurableScope(ctx context.Context, scope model.RateLimitScope, identifier string, cfg Scope, limitedCode, blockedCode string) *apierr.Error {
	key := string(scope) + ":" + identifier
	now := time.Now()

	g.mu.Lock()
	b, exists := g.buckets[key]
	if exists && now.Before(b.blockedUntil) {
		retryAfter := int(b.blockedUntil.Sub(now).Seconds()) + 1
		g.mu.Unlock()
		return blockedError(blockedCode, retryAfter)
	}
	g.mu.Unlock()

	if row, err := g.store.Get(ctx, scope, identifier, periodStart(cfg.Window)); err != nil {
		g.logger.Warn("rate gate durable lookup failed, proceeding on in-process state only", "error", err, "scope", scope)
	} else if row != nil && row.BlockedUntil != nil && row.BlockedUntil.After(now) {
		g.mu.Lock()
		g.buckets[key] = &bucket{windowStart: now, blockedUntil: *row.BlockedUntil}
		g.mu.Unlock()
		retryAfter := int(row.BlockedUntil.Sub(now).Seconds()) + 1
		return blockedError(blockedCode, retryAfter)
	}

	count, err := g.store.Increment(ctx, scope, identifier, periodStart(cfg.Window))
	if err != nil {
		g.logger.Warn("rate gate durable increment failed, falling back to in-process counting", "error", err, "scope", scope)
		count = g.incrementInProcess(key, cfg.Window, now)
	} else {
		g.mu.Lock()
		g.buckets[key] = &bucket{windowStart: now, count: count}
		g.mu.Unlock()
	}

	if count > cfg.MaxRequests {
		blockedUntil := now.Add(cfg.BlockDuration)
		g.mu.Lock()
		g.buckets[key] = &bucket{windowStart: now, blockedUntil: blockedUntil}
		g.mu.Unlock()
		if err := g.store.SetBlock(ctx, scope, identifier, periodStart(cfg.Window), blockedUntil); err != nil {
			g.logger.Warn("rate gate failed to persist block record", "error", err, "scope", scope)
		}
		return blockedError(limitedCode, int(cfg.BlockDuration.Seconds()))
	}

	return nil
}

func (g *Gate) checkUserScope(ctx context.Context, userID string, cfg Scope) (*Decision, *apierr.Error) {
	if apiErr := g.checkDurableScope(ctx, model.ScopeUserMinute, userID, cfg, apierr.CodeRateLimited, apierr.CodeUserBlocked); apiErr != nil {
		return nil, apiErr
	}

	g.mu.Lock()
	b := g.buckets[string(model.ScopeUserMinute)+":"+userID]
	var remaining int
	var reset int64
	if b != nil {
		remaining = cfg.MaxRequests - b.count
		if remaining < 0 {
			remaining = 0
		}
		reset = b.windowStart.Add(cfg.Window).Unix()
	}
	g.mu.Unlock()

	return &Decision{Limit: cfg.MaxRequests, Remaining: remaining, Reset: reset}, nil
}

func (g *Gate) incrementInProcess(key string, window time.Duration, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		b = &bucket{windowStart: now, count: 0}
		g.buckets[key] = b
	}
	b.count++
	return b.count
}

func blockedError(code string, retryAfterSeconds int) *apierr.Error {
	return apierr.New(http.StatusTooManyRequests, code, "rate limit exceeded").
		WithFields(map[string]interface{}{"retryAfter": retryAfterSeconds})
}

func periodStart(window time.Duration) time.Time {
	return time.Now().Truncate(window)
}

// Sweep evicts expired in-process entries. The server runs it on a
// five-minute ticker.
func (g *Gate) Sweep() {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, b := range g.buckets {
		if now.After(b.blockedUntil) && now.Sub(b.windowStart) > time.Hour {
			delete(g.buckets, k)
		}
	}
}
