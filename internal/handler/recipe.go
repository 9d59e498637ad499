// Package handler adapts the admission controller and its collaborators
// onto the service's HTTP surface.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/middleware"
	"github.com/recipeforge/admission/internal/pkg/response"
	"github.com/recipeforge/admission/internal/service/admission"
	"github.com/recipeforge/admission/internal/service/ai"
	"github.com/recipeforge/admission/internal/service/ratelimit"
)

// RecipeHandler wires POST /analyze and POST /generate to the admission
// controller. Both endpoints assume Auth has already attached an
// identity to the request context.
type RecipeHandler struct {
	controller *admission.Controller
}

func NewRecipeHandler(controller *admission.Controller) *RecipeHandler {
	return &RecipeHandler{controller: controller}
}

type analyzeRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

// Analyze handles POST /analyze.
func (h *RecipeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.APIError(w, apierr.New(http.StatusUnauthorized, apierr.CodeAuthMissing, "missing bearer credential"))
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.APIError(w, apierr.New(http.StatusBadRequest, apierr.CodeURLMissing, "request body must be valid JSON"))
		return
	}

	ip := clientIP(r)
	result, apiErr := h.controller.Analyze(r.Context(), identity.ID, ip, req.URL, req.Language)
	if apiErr != nil {
		response.APIError(w, apiErr)
		return
	}

	setRateLimitHeaders(w, result.RateLimit)
	response.OK(w, result.Recipe, identity.ID.String(), result.AlreadyExists, result.Duplicated, result.Generated)
}

type generateRequest struct {
	Ingredients []string `json:"ingredients"`
	MealType    string   `json:"mealType"`
	DietTypes   []string `json:"dietTypes"`
	Equipment   []string `json:"equipment"`
	Language    string   `json:"language"`
}

// Generate handles POST /generate.
func (h *RecipeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.APIError(w, apierr.New(http.StatusUnauthorized, apierr.CodeAuthMissing, "missing bearer credential"))
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.APIError(w, apierr.New(http.StatusBadRequest, apierr.CodeInvalidIngredients, "request body must be valid JSON"))
		return
	}

	input := ai.GenerationInput{
		Ingredients: req.Ingredients,
		MealType:    req.MealType,
		DietTypes:   req.DietTypes,
		Equipment:   req.Equipment,
	}

	ip := clientIP(r)
	result, apiErr := h.controller.Generate(r.Context(), identity.ID, ip, input, req.Language)
	if apiErr != nil {
		response.APIError(w, apiErr)
		return
	}

	setRateLimitHeaders(w, result.RateLimit)
	response.OK(w, result.Recipe, identity.ID.String(), result.AlreadyExists, result.Duplicated, result.Generated)
}

// setRateLimitHeaders surfaces the user-scope rate limit decision on an
// allow, matching the Access-Control-Expose-Headers list the CORS
// middleware advertises. Must be called before the response body is
// written, since headers can't follow WriteHeader.
func setRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.Decision) {
	if decision == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset, 10))
}

// clientIP extracts the caller's IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
