package handler

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"time"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/pkg/response"
)

// AdminHandler serves the operator-facing snapshot endpoint, guarded by a
// static shared secret rather than the bearer-credential Authenticator.
type AdminHandler struct {
	db     *sql.DB
	apiKey string
}

func NewAdminHandler(db *sql.DB, apiKey string) *AdminHandler {
	return &AdminHandler{db: db, apiKey: apiKey}
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return false
	}
	key := r.Header.Get("x-admin-key")
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) == 1
}

// statsResponse reports the rate-gate/cost-gate counters: current
// period counts plus how many identifiers are currently under a sticky
// block.
type statsResponse struct {
	RateGate  rateGateStats `json:"rateGate"`
	CostGate  costGateStats `json:"costGate"`
	Timestamp time.Time     `json:"timestamp"`
}

type rateGateStats struct {
	BlockedIPs   int `json:"blockedIps"`
	BlockedUsers int `json:"blockedUsers"`
}

type costGateStats struct {
	HourlyGlobalCount int `json:"hourlyGlobalCount"`
	DailyGlobalCount  int `json:"dailyGlobalCount"`
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		response.APIError(w, apierr.New(http.StatusForbidden, apierr.CodeForbidden, "admin key mismatch"))
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	stats := statsResponse{Timestamp: now}

	if h.db != nil {
		h.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM rate_limit_stats
			WHERE type = 'ip_minute' AND blocked_until IS NOT NULL AND blocked_until > now()
		`).Scan(&stats.RateGate.BlockedIPs)

		h.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM rate_limit_stats
			WHERE type = 'user_minute' AND blocked_until IS NOT NULL AND blocked_until > now()
		`).Scan(&stats.RateGate.BlockedUsers)

		hourStart := now.Truncate(time.Hour)
		h.db.QueryRowContext(ctx, `
			SELECT COALESCE(count, 0) FROM rate_limit_stats
			WHERE type = 'hourly_global' AND identifier = '' AND period_start = $1
		`, hourStart).Scan(&stats.CostGate.HourlyGlobalCount)

		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		h.db.QueryRowContext(ctx, `
			SELECT COALESCE(count, 0) FROM rate_limit_stats
			WHERE type = 'daily_global' AND identifier = '' AND period_start = $1
		`, dayStart).Scan(&stats.CostGate.DailyGlobalCount)
	}

	response.JSON(w, http.StatusOK, stats)
}
