// Package pipeline implements the pipeline orchestrator: the fixed
// platform-detect -> metadata -> audio -> transcript -> LLM-extract
// sequence for analyze requests, and the preference-driven generation
// flow, each owning its own temp-file lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/recipeforge/admission/internal/apierr"
	"github.com/recipeforge/admission/internal/model"
	"github.com/recipeforge/admission/internal/service/ai"
	"github.com/recipeforge/admission/internal/service/platform"
)

// SpeechClient transcribes an audio file to text.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// LLMClient runs structured extraction and preference-driven generation.
type LLMClient interface {
	ExtractRecipe(ctx context.Context, transcript, description, language string) (*ai.ExtractionResult, error)
	GenerateRecipe(ctx context.Context, input ai.GenerationInput, language string) (*ai.ExtractionResult, error)
}

// ImageClient produces a dish photo for a generated recipe.
type ImageClient interface {
	GenerateDishPhoto(ctx context.Context, title, description string) ([]byte, string, error)
}

// Orchestrator runs the analyze and generate flows.
type Orchestrator struct {
	registry *platform.Registry
	speech   SpeechClient
	llm      LLMClient
	images   ImageClient
	tempDir  string
	logger   *slog.Logger
}

func NewOrchestrator(registry *platform.Registry, speech SpeechClient, llm LLMClient, images ImageClient, tempDir string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, speech: speech, llm: llm, images: images, tempDir: tempDir, logger: logger}
}

// AnalyzeOutcome is everything the admission controller needs to hand to
// the persistence layer after a successful analyze pipeline run.
type AnalyzeOutcome struct {
	Recipe             *model.Recipe
	RemoteThumbnailURL string
}

// Analyze runs the fixed metadata/audio/transcription/extraction
// sequence for a source URL. The audio file is always removed before
// returning, success or failure.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL, language string) (*AnalyzeOutcome, error) {
	handler := o.registry.Detect(rawURL)
	if handler == nil {
		return nil, apierr.New(400, apierr.CodePlatformUnsupported, "this video platform is not supported")
	}

	metadata, err := handler.FetchMetadata(ctx, rawURL)
	if err != nil {
		o.logger.Warn("metadata fetch failed, proceeding without it", "platform", handler.Name(), "error", err)
		metadata = nil
	}

	audioPath, err := handler.ExtractAudio(ctx, rawURL, o.tempDir)
	if err != nil {
		return nil, apierr.Wrap(500, apierr.CodeInternal, "could not download audio from this video", err)
	}
	defer handler.Cleanup(audioPath)

	transcript, err := o.speech.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, apierr.Wrap(500, apierr.CodeInternal, "speech transcription failed", err)
	}

	description := ""
	if metadata != nil && metadata.Title != nil {
		description = handler.CleanDescription(*metadata.Title)
	}

	extracted, err := o.llm.ExtractRecipe(ctx, transcript, description, language)
	if err != nil {
		var notRecipe model.NotRecipeError
		if errors.As(err, &notRecipe) {
			return nil, apierr.NotRecipe(notRecipe.Message)
		}
		return nil, apierr.Wrap(500, apierr.CodeInternal, "recipe extraction failed", err)
	}

	recipe := normalize(extracted, language)
	recipe.Platform = handler.Name()
	recipe.SourceURL = &rawURL

	thumbnailURL := ""
	if metadata != nil && metadata.ThumbnailURL != nil {
		thumbnailURL = *metadata.ThumbnailURL
	}

	return &AnalyzeOutcome{Recipe: recipe, RemoteThumbnailURL: thumbnailURL}, nil
}

// GenerateOutcome carries the generated recipe plus its already-fetched
// dish photo bytes (never a URL: the bytes go straight to persistence).
type GenerateOutcome struct {
	Recipe           *model.Recipe
	ImageBytes       []byte
	ImageContentType string
}

// Generate runs the preference-driven generation flow.
func (o *Orchestrator) Generate(ctx context.Context, input ai.GenerationInput, language string) (*GenerateOutcome, error) {
	extracted, err := o.llm.GenerateRecipe(ctx, input, language)
	if err != nil {
		var notRecipe model.NotRecipeError
		if errors.As(err, &notRecipe) {
			return nil, apierr.NotRecipe(notRecipe.Message)
		}
		return nil, apierr.Wrap(500, apierr.CodeInternal, "recipe generation failed", err)
	}

	recipe := normalize(extracted, language)
	recipe.Platform = model.PlatformGenerated

	var imageBytes []byte
	var contentType string
	if o.images != nil {
		description := ""
		if recipe.CuisineOrigin != nil {
			description = fmt.Sprintf("Cuisine: %s.", *recipe.CuisineOrigin)
		}
		imageBytes, contentType, err = o.images.GenerateDishPhoto(ctx, recipe.Title, description)
		if err != nil {
			o.logger.Warn("dish photo generation failed, proceeding without image", "error", err)
			imageBytes = nil
		}
	}

	return &GenerateOutcome{Recipe: recipe, ImageBytes: imageBytes, ImageContentType: contentType}, nil
}

// normalize coerces dietType to a (possibly empty) list, defaults
// cuisineOrigin/mealType to nil outside the closed set, and restricts
// equipment to the closed vocabulary.
func normalize(extracted *ai.ExtractionResult, language string) *model.Recipe {
	recipe := &model.Recipe{
		Title:     extracted.Title,
		PrepTime:  extracted.PrepTime,
		CookTime:  extracted.CookTime,
		TotalTime: extracted.TotalTime,
		Servings:  extracted.Servings,
		Calories:  extracted.Calories,
		Proteins:  extracted.Proteins,
		Carbs:     extracted.Carbs,
		Fats:      extracted.Fats,
	}

	if extracted.CuisineOrigin != nil && model.ValidCuisineOrigin(*extracted.CuisineOrigin) {
		recipe.CuisineOrigin = extracted.CuisineOrigin
	}
	if extracted.MealType != nil && model.ValidMealType(language, *extracted.MealType) {
		recipe.MealType = extracted.MealType
	}

	recipe.DietType = make([]string, 0, len(extracted.DietType))
	for _, d := range extracted.DietType {
		if model.ValidDietType(language, d) {
			recipe.DietType = append(recipe.DietType, d)
		}
	}

	recipe.Equipment = model.RestrictEquipment(language, extracted.Equipment)

	recipe.Ingredients = make([]model.Ingredient, len(extracted.Ingredients))
	for i, ing := range extracted.Ingredients {
		recipe.Ingredients[i] = model.Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}

	recipe.Steps = make([]model.Step, len(extracted.Steps))
	for i, step := range extracted.Steps {
		order := step.Order
		if order == 0 {
			order = i + 1
		}
		recipe.Steps[i] = model.Step{
			Order:           order,
			Text:            step.Text,
			Duration:        step.Duration,
			Temperature:     step.Temperature,
			IngredientsUsed: step.IngredientsUsed,
		}
	}

	return recipe
}
