package router

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/recipeforge/admission/internal/config"
	"github.com/recipeforge/admission/internal/handler"
	"github.com/recipeforge/admission/internal/middleware"
	"github.com/recipeforge/admission/internal/service/admission"
	"github.com/recipeforge/admission/internal/service/auth"
)

// New wires every handler onto the service's fixed HTTP surface.
func New(cfg *config.Config, logger *slog.Logger, db *sql.DB, redis *redis.Client, authenticator *auth.Authenticator, controller *admission.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(cfg.CorsAllowedOrigins))

	healthHandler := handler.NewHealthHandler(db, redis)
	adminHandler := handler.NewAdminHandler(db, cfg.AdminAPIKey)
	recipeHandler := handler.NewRecipeHandler(controller)

	r.Get("/health", healthHandler.Health)
	r.Get("/admin/stats", adminHandler.Stats)

	// The rate gate runs as the admission controller's own first
	// step, not as HTTP middleware: it needs the profile-specific
	// scopes (StandardProfile vs StrictProfile) the controller already
	// picks per endpoint, and a middleware layer here would check and
	// increment the same counters twice.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authenticator))
		r.Post("/analyze", recipeHandler.Analyze)
		r.Post("/generate", recipeHandler.Generate)
	})

	return r
}
