// Package ai implements the LLM extraction and preference-driven
// generation collaborator the pipeline orchestrator calls after
// transcription.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/recipeforge/admission/internal/model"
)

var reJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// cleanJSON strips a markdown code fence around a JSON body, if present.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if matches := reJSONBlock.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// sanitizePromptString strips newlines and control characters from
// caller-supplied text before it's interpolated into a prompt, closing
// off prompt-injection via a crafted title or ingredient name.
func sanitizePromptString(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var b strings.Builder
	for _, r := range s {
		if r >= 32 || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil || len(resp.Candidates) == 0 {
		return fmt.Errorf("empty response from language model")
	}
	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return fmt.Errorf("content blocked by safety filters")
	case genai.FinishReasonRecitation:
		return fmt.Errorf("content blocked: recitation policy violation")
	case genai.FinishReasonMaxTokens:
		return fmt.Errorf("response truncated: output exceeded max tokens")
	case genai.FinishReasonOther:
		return fmt.Errorf("model returned an unexpected finish reason")
	}
	if candidate.Content == nil {
		return fmt.Errorf("no content in model response (finish reason: %v)", candidate.FinishReason)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if err := validateResponse(resp); err != nil {
		return "", err
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return cleanJSON(string(txt)), nil
		}
	}
	return "", fmt.Errorf("no text content in model response")
}

type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var defaultRetryConfig = retryConfig{maxAttempts: 5, baseDelay: time.Second, maxDelay: 30 * time.Second}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED")
}

// withRetry retries fn with full-jitter exponential backoff (AWS-style):
// delay = rand(0, min(maxDelay, baseDelay*2^attempt)). Full jitter
// decorrelates retries across concurrent requests rather than
// synchronizing them on a shared backoff curve.
func withRetry[T any](ctx context.Context, cfg retryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return zero, err
		}

		if attempt < cfg.maxAttempts-1 {
			isRateLimit := strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")

			base := cfg.baseDelay
			if isRateLimit {
				base = 2 * time.Second
			}
			ceiling := base * time.Duration(1<<uint(attempt))
			if ceiling > cfg.maxDelay {
				ceiling = cfg.maxDelay
			}
			delay := time.Duration(rand.Int64N(int64(ceiling)))
			if isRateLimit && delay < time.Second {
				delay = time.Second
			}

			slog.Warn("language model call retrying", "attempt", attempt+1, "max_attempts", cfg.maxAttempts, "delay", delay, "error", err.Error())

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Client implements recipe extraction and preference-driven generation
// against Gemini.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &Client{client: client, model: modelName}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func closedSetBlock(language string) string {
	meals := model.MealTypesByLang[language]
	diets := model.DietTypesByLang[language]
	equipment := model.EquipmentByLang[language]
	return fmt.Sprintf(`Allowed mealType values: %s
Allowed dietType values: %s
Allowed equipment values: %s
Allowed cuisineOrigin values: %s`,
		strings.Join(meals, ", "), strings.Join(diets, ", "),
		strings.Join(equipment, ", "), strings.Join(model.CuisineOrigins, ", "))
}

const jsonContractBlock = `If the content is not a cooking recipe or food preparation, respond with exactly:
{"error": "NOT_RECIPE", "message": "<localized one-sentence explanation>"}

Otherwise respond with a single JSON object shaped exactly like this (omit a
field entirely rather than guessing when truly unknown):
{
  "title": "string",
  "prepTime": 15,
  "cookTime": 30,
  "totalTime": 45,
  "servings": 4,
  "cuisineOrigin": "one of the allowed cuisineOrigin values",
  "mealType": "one of the allowed mealType values",
  "dietType": ["one or more of the allowed dietType values"],
  "calories": 450,
  "proteins": 20,
  "carbs": 50,
  "fats": 15,
  "equipment": ["one or more of the allowed equipment values"],
  "ingredients": [{"name": "string", "quantity": 2, "unit": "string"}],
  "steps": [{"order": 1, "text": "string", "duration": 5, "temperature": "string", "ingredientsUsed": ["string"]}]
}

All object keys above are fixed English identifiers. All textual VALUES
(title, message, ingredient names, step text) must be written in the
requested language. Return JSON only, no surrounding prose. If your
response is wrapped in a markdown code fence, that is acceptable — it
will be stripped before parsing.`

// ExtractRecipe runs the structured-extraction LLM call (spec temperature
// 0.3) against a transcript plus optional platform description.
func (c *Client) ExtractRecipe(ctx context.Context, transcript, description, language string) (*ExtractionResult, error) {
	langName := "English"
	if language == "fr" {
		langName = "French"
	}

	prompt := fmt.Sprintf(`You are an expert chef analyzing a transcribed cooking video. Extract a
structured recipe from the transcript below. Respond in %s.

%s

<transcript>
%s
</transcript>

<platform_description>
%s
</platform_description>

%s`,
		langName, closedSetBlock(language), sanitizePromptString(transcript), sanitizePromptString(description), jsonContractBlock)

	genModel := c.client.GenerativeModel(c.model)
	genModel.ResponseMIMEType = "application/json"
	temp := float32(0.3)
	genModel.Temperature = &temp

	resp, err := withRetry(ctx, defaultRetryConfig, func() (*genai.GenerateContentResponse, error) {
		return genModel.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	return decodeRecipeOrRejection(resp)
}

// GenerateRecipe runs the preference-driven generation LLM call (spec
// temperature 0.7). The prompt enforces "real, existing recipe"
// discipline and asks the model to ignore preference combinations that
// don't make culinary sense together, rather than forcing them in.
func (c *Client) GenerateRecipe(ctx context.Context, input GenerationInput, language string) (*ExtractionResult, error) {
	langName := "English"
	if language == "fr" {
		langName = "French"
	}

	var prefLines strings.Builder
	if input.MealType != "" {
		fmt.Fprintf(&prefLines, "Meal type: %s\n", sanitizePromptString(input.MealType))
	}
	if len(input.DietTypes) > 0 {
		fmt.Fprintf(&prefLines, "Diet types: %s\n", strings.Join(sanitizeAll(input.DietTypes), ", "))
	}
	if len(input.Equipment) > 0 {
		fmt.Fprintf(&prefLines, "Available equipment: %s\n", strings.Join(sanitizeAll(input.Equipment), ", "))
	}
	if len(input.Ingredients) > 0 {
		fmt.Fprintf(&prefLines, "Ingredients on hand: %s\n", strings.Join(sanitizeAll(input.Ingredients), ", "))
	}

	prompt := fmt.Sprintf(`You are an expert chef. Propose one real, existing recipe — not an
invented fusion dish — that reasonably fits the preferences below.
Ignore any preference that is inconsistent with the others rather than
forcing an unrealistic combination. Respond in %s.

<preferences>
%s</preferences>

%s

%s`,
		langName, prefLines.String(), closedSetBlock(language), jsonContractBlock)

	genModel := c.client.GenerativeModel(c.model)
	genModel.ResponseMIMEType = "application/json"
	temp := float32(0.7)
	genModel.Temperature = &temp

	resp, err := withRetry(ctx, defaultRetryConfig, func() (*genai.GenerateContentResponse, error) {
		return genModel.GenerateContent(ctx, genai.Text(prompt))
	})
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	return decodeRecipeOrRejection(resp)
}

func decodeRecipeOrRejection(resp *genai.GenerateContentResponse) (*ExtractionResult, error) {
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var rejection notRecipeEnvelope
	if err := json.Unmarshal([]byte(text), &rejection); err == nil && rejection.Error == "NOT_RECIPE" {
		return nil, model.NotRecipeError{Message: rejection.Message}
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse recipe JSON: %w (raw: %.500s)", err, text)
	}
	return &result, nil
}

func sanitizeAll(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = sanitizePromptString(it)
	}
	return out
}
