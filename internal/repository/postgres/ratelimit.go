package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/recipeforge/admission/internal/model"
)

// RateLimitRepository is the durable counter store backing the rate
// gate and cost gate: one row per (type, identifier, period_start).
type RateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(db *sql.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Get reads the counter row for a scope/identifier/period, if any.
func (r *RateLimitRepository) Get(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (*model.RateLimitCounter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT type, identifier, period_start, count, blocked_until
		FROM rate_limit_stats
		WHERE type = $1 AND identifier = $2 AND period_start = $3
	`, string(scope), identifier, periodStart)

	var c model.RateLimitCounter
	var scopeStr string
	if err := row.Scan(&scopeStr, &c.Identifier, &c.PeriodStart, &c.Count, &c.BlockedUntil); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Type = model.RateLimitScope(scopeStr)
	return &c, nil
}

// Increment atomically upserts the counter row, returning the
// post-increment count. A fresh period resets the row to 1.
func (r *RateLimitRepository) Increment(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_stats (type, identifier, period_start, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (type, identifier, period_start)
		DO UPDATE SET count = rate_limit_stats.count + 1
		RETURNING count
	`, string(scope), identifier, periodStart)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetBlock records blocked_until for the current period, used once a
// scope's limit has been exceeded.
func (r *RateLimitRepository) SetBlock(ctx context.Context, scope model.RateLimitScope, identifier string, periodStart, blockedUntil time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rate_limit_stats (type, identifier, period_start, count, blocked_until)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (type, identifier, period_start)
		DO UPDATE SET blocked_until = $4
	`, string(scope), identifier, periodStart, blockedUntil)
	return err
}

// DeleteOlderThan removes rows whose period started before the cutoff,
// as the background retention sweep runs periodically.
func (r *RateLimitRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_stats WHERE period_start < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
