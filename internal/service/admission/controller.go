// Package admission implements the admission controller: the exact
// per-request sequence that wires the rate gate, cost gate, single-flight
// registry, idempotence resolver, quota ledger, pipeline orchestrator,
// and persistence layer together, with a guaranteed single-flight release
// on every exit path.
package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/model"
	"github.com/recipeforge/admission/internal/service/ai"
	"github.com/recipeforge/admission/internal/service/costgate"
	"github.com/recipeforge/admission/internal/service/idempotence"
	"github.com/recipeforge/admission/internal/service/persistence"
	"github.com/recipeforge/admission/internal/service/pipeline"
	"github.com/recipeforge/admission/internal/service/quota"
	"github.com/recipeforge/admission/internal/service/ratelimit"
	"github.com/recipeforge/admission/internal/service/singleflight"
)

// Result is what a successful analyze or generate call returns to the
// HTTP handler for serialization into the success envelope.
type Result struct {
	Recipe        *model.Recipe
	AlreadyExists bool
	Duplicated    bool
	Generated     bool
	RateLimit     *ratelimit.Decision
}

// outcome codes logged on exit for the success paths; failure paths log
// the apierr.Error's own code.
const (
	outcomeAnalyzed      = "ANALYZED"
	outcomeAlreadyExists = "ALREADY_EXISTS"
	outcomeDuplicated    = "DUPLICATED"
	outcomeGenerated     = "GENERATED"
)

// Controller wires the rate gate, cost gate, idempotence resolver,
// single-flight lock, quota ledger, pipeline orchestrator, and
// persistence layer into the fixed analyze/generate sequences.
// Authentication runs as HTTP middleware ahead of the controller; every
// method here assumes a verified identity.
type Controller struct {
	rateGate     *ratelimit.Gate
	costGate     *costgate.Gate
	singleFlight *singleflight.Registry
	resolver     *idempotence.Resolver
	ledger       *quota.Ledger
	orchestrator *pipeline.Orchestrator
	store        *persistence.Layer
	logger       *slog.Logger
}

func NewController(
	rateGate *ratelimit.Gate,
	costGate *costgate.Gate,
	singleFlight *singleflight.Registry,
	resolver *idempotence.Resolver,
	ledger *quota.Ledger,
	orchestrator *pipeline.Orchestrator,
	store *persistence.Layer,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		rateGate:     rateGate,
		costGate:     costGate,
		singleFlight: singleFlight,
		resolver:     resolver,
		ledger:       ledger,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

// Analyze runs the full admission sequence for a source-URL request.
// Every exit — success or failure — emits one structured log line
// carrying the outcome code, user id, normalized url, and elapsed
// duration, the third scoped-release action alongside the temp-audio
// cleanup and single-flight release.
func (c *Controller) Analyze(ctx context.Context, userID uuid.UUID, ip, rawURL, language string) (*Result, *apierr.Error) {
	start := time.Now()
	normalizedURL := idempotence.Normalize(rawURL)

	result, apiErr := c.analyze(ctx, userID, ip, rawURL, language, normalizedURL)
	c.logExit(start, userID, normalizedURL, outcomeCode(result, apiErr))
	return result, apiErr
}

func (c *Controller) analyze(ctx context.Context, userID uuid.UUID, ip, rawURL, language, normalizedURL string) (*Result, *apierr.Error) {
	rlDecision, apiErr := c.rateGate.Check(ctx, ratelimit.StandardProfile, userID.String(), ip)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := c.costGate.Check(ctx, userID.String()); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := validateAnalyzeInput(rawURL, language); apiErr != nil {
		return nil, apiErr
	}

	// Step 5: owner duplicate skips both the single-flight lock and the
	// quota ledger entirely — it is not billable.
	if owner, err := c.resolver.FindOwnerMatch(ctx, userID, normalizedURL); err != nil {
		c.logger.Warn("owner duplicate lookup failed, proceeding with analysis", "error", err)
	} else if owner != nil {
		return &Result{Recipe: owner, AlreadyExists: true, RateLimit: rlDecision}, nil
	}

	if !c.singleFlight.TryAcquire(userID.String(), normalizedURL) {
		return nil, apierr.New(429, apierr.CodeAnalysisInProgress, "an analysis for this user is already in progress")
	}
	release := func() { c.singleFlight.Release(userID.String()) }

	// Step 7: global duplicate is billable. It clones rather than
	// re-running the pipeline.
	if global, err := c.resolver.FindGlobalMatch(ctx, normalizedURL); err != nil {
		c.logger.Warn("global duplicate lookup failed, proceeding with analysis", "error", err)
	} else if global != nil {
		decision, err := c.ledger.CanGenerate(ctx, userID)
		if err != nil {
			release()
			return nil, apierr.Internal(err)
		}
		if !decision.Allowed {
			release()
			return nil, apierr.New(403, apierr.CodePremiumRequired, "no free generations remaining")
		}

		clone, err := c.store.Clone(ctx, global.ID, userID)
		if err != nil {
			release()
			return nil, apierr.Internal(err)
		}
		c.ledger.Debit(ctx, userID, decision.IsPremium)
		c.costGate.Record(ctx, userID.String())
		release()
		return &Result{Recipe: clone, AlreadyExists: true, Duplicated: true, RateLimit: rlDecision}, nil
	}

	decision, err := c.ledger.CanGenerate(ctx, userID)
	if err != nil {
		release()
		return nil, apierr.Internal(err)
	}
	if !decision.Allowed {
		release()
		return nil, apierr.New(403, apierr.CodePremiumRequired, "no free generations remaining")
	}

	outcome, pipelineErr := c.orchestrator.Analyze(ctx, rawURL, language)
	if pipelineErr != nil {
		release()
		return nil, asAPIError(pipelineErr)
	}

	outcome.Recipe.UserID = userID
	outcome.Recipe.GenerationMode = generationMode(decision.IsPremium)

	if err := c.store.Persist(ctx, outcome.Recipe, outcome.RemoteThumbnailURL); err != nil {
		release()
		return nil, apierr.Internal(err)
	}

	c.ledger.Debit(ctx, userID, decision.IsPremium)
	c.costGate.Record(ctx, userID.String())
	release()

	return &Result{Recipe: outcome.Recipe, RateLimit: rlDecision}, nil
}

// Generate runs the admission sequence's generation variant: the
// idempotence resolver is skipped since a generated recipe has no
// source URL to match against. Every exit emits the same structured
// outcome log as Analyze.
func (c *Controller) Generate(ctx context.Context, userID uuid.UUID, ip string, input ai.GenerationInput, language string) (*Result, *apierr.Error) {
	start := time.Now()

	result, apiErr := c.generate(ctx, userID, ip, input, language)
	c.logExit(start, userID, "", outcomeCode(result, apiErr))
	return result, apiErr
}

func (c *Controller) generate(ctx context.Context, userID uuid.UUID, ip string, input ai.GenerationInput, language string) (*Result, *apierr.Error) {
	rlDecision, apiErr := c.rateGate.Check(ctx, ratelimit.StrictProfile, userID.String(), ip)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := c.costGate.Check(ctx, userID.String()); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := validateGenerateInput(input, language); apiErr != nil {
		return nil, apiErr
	}

	// Generated recipes have no source URL to key on; the registry only
	// tracks one in-flight slot per user regardless of the value stored,
	// so this still serializes concurrent analyze/generate calls for the
	// same user.
	if !c.singleFlight.TryAcquire(userID.String(), "generate") {
		return nil, apierr.New(429, apierr.CodeAnalysisInProgress, "an analysis for this user is already in progress")
	}
	release := func() { c.singleFlight.Release(userID.String()) }

	decision, err := c.ledger.CanGenerate(ctx, userID)
	if err != nil {
		release()
		return nil, apierr.Internal(err)
	}
	if !decision.Allowed {
		release()
		return nil, apierr.New(403, apierr.CodePremiumRequired, "no free generations remaining")
	}

	outcome, pipelineErr := c.orchestrator.Generate(ctx, input, language)
	if pipelineErr != nil {
		release()
		return nil, asAPIError(pipelineErr)
	}

	outcome.Recipe.UserID = userID
	outcome.Recipe.GenerationMode = generationMode(decision.IsPremium)

	if err := c.store.PersistGenerated(ctx, outcome.Recipe, outcome.ImageBytes, outcome.ImageContentType); err != nil {
		release()
		return nil, apierr.Internal(err)
	}

	c.ledger.Debit(ctx, userID, decision.IsPremium)
	c.costGate.Record(ctx, userID.String())
	release()

	return &Result{Recipe: outcome.Recipe, Generated: true, RateLimit: rlDecision}, nil
}

// logExit emits the admission controller's one mandatory structured
// log line per request, regardless of outcome.
func (c *Controller) logExit(start time.Time, userID uuid.UUID, normalizedURL, outcome string) {
	c.logger.Info("admission exit",
		"outcome", outcome,
		"user_id", userID.String(),
		"url", normalizedURL,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func outcomeCode(result *Result, apiErr *apierr.Error) string {
	if apiErr != nil {
		return apiErr.Code
	}
	if result == nil {
		return apierr.CodeInternal
	}
	switch {
	case result.Generated:
		return outcomeGenerated
	case result.Duplicated:
		return outcomeDuplicated
	case result.AlreadyExists:
		return outcomeAlreadyExists
	default:
		return outcomeAnalyzed
	}
}

func generationMode(isPremium bool) model.GenerationMode {
	if isPremium {
		return model.GenerationPremium
	}
	return model.GenerationFree
}

func asAPIError(err error) *apierr.Error {
	if apiErr, ok := err.(*apierr.Error); ok {
		return apiErr
	}
	return apierr.Internal(err)
}

func validateAnalyzeInput(rawURL, language string) *apierr.Error {
	if rawURL == "" {
		return apierr.New(400, apierr.CodeURLMissing, "url is required")
	}
	if language != "" && language != "fr" && language != "en" {
		return apierr.New(400, apierr.CodeInvalidLanguage, "language must be fr or en")
	}
	return nil
}

func validateGenerateInput(input ai.GenerationInput, language string) *apierr.Error {
	if language != "" && language != "fr" && language != "en" {
		return apierr.New(400, apierr.CodeInvalidLanguage, "language must be fr or en")
	}
	lang := language
	if lang == "" {
		lang = "en"
	}
	if input.MealType != "" && !model.ValidMealType(lang, input.MealType) {
		return apierr.New(400, apierr.CodeInvalidMealType, "mealType is not recognized")
	}
	for _, d := range input.DietTypes {
		if !model.ValidDietType(lang, d) {
			return apierr.New(400, apierr.CodeInvalidDietTypes, "dietTypes contains an unrecognized value")
		}
	}
	for _, e := range input.Equipment {
		if !model.ValidEquipment(lang, e) {
			return apierr.New(400, apierr.CodeInvalidEquipment, "equipment contains an unrecognized value")
		}
	}
	if len(input.Ingredients) > 50 {
		return apierr.New(400, apierr.CodeInvalidIngredients, "too many ingredients supplied")
	}
	return nil
}
