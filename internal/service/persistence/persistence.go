// Package persistence implements the persistence layer: thumbnail
// upload, recipe + child-row writes with fuzzy ingredient linking,
// hydration, and owner cloning.
package persistence

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
	"github.com/recipeforge/admission/internal/service/foodmatch"
)

// ThumbnailStore uploads a thumbnail to the object store, either fetched
// from a remote URL (analyze flow) or already held in memory (generate
// flow, whose image LLM call returns bytes directly).
type ThumbnailStore interface {
	Persist(ctx context.Context, url, platform string) (string, error)
	PersistBytes(ctx context.Context, body []byte, contentType, platform string) (string, error)
}

// RecipeStore is the recipe-table backing the layer needs.
type RecipeStore interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	Hydrate(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	Clone(ctx context.Context, sourceID, newOwner uuid.UUID) (*model.Recipe, error)
	FindOwnerMatch(ctx context.Context, userID uuid.UUID, normalizedURL string) (*model.Recipe, error)
	FindGlobalMatch(ctx context.Context, normalizedURL string) (*model.Recipe, error)
}

// FoodItemStore is the master food-table snapshot the fuzzy matcher reads.
type FoodItemStore interface {
	ListAll(ctx context.Context) ([]model.FoodItem, error)
}

type Layer struct {
	recipes    RecipeStore
	foodItems  FoodItemStore
	thumbnails ThumbnailStore
	logger     *slog.Logger
}

func NewLayer(recipes RecipeStore, foodItems FoodItemStore, thumbnails ThumbnailStore, logger *slog.Logger) *Layer {
	return &Layer{recipes: recipes, foodItems: foodItems, thumbnails: thumbnails, logger: logger}
}

// Persist uploads the remote thumbnail (if any), resolves each
// ingredient's food_item_id against a fresh snapshot of the master food
// table, and writes the recipe plus children. On any thumbnail failure
// image_url is left null rather than failing the whole write.
func (l *Layer) Persist(ctx context.Context, recipe *model.Recipe, remoteThumbnailURL string) error {
	if remoteThumbnailURL != "" && l.thumbnails != nil {
		if publicURL, err := l.thumbnails.Persist(ctx, remoteThumbnailURL, recipe.Platform); err != nil {
			l.logger.Warn("thumbnail persist failed, proceeding without image", "error", err)
			recipe.ImageURL = nil
		} else {
			recipe.ImageURL = &publicURL
		}
	}

	if len(recipe.Ingredients) > 0 {
		snapshot, err := l.foodItems.ListAll(ctx)
		if err != nil {
			l.logger.Warn("food item snapshot unavailable, leaving ingredients unlinked", "error", err)
		} else {
			matcher := foodmatch.NewMatcher(snapshot)
			for i := range recipe.Ingredients {
				if match := matcher.Match(recipe.Ingredients[i].Name); match != nil {
					id := match.ID
					recipe.Ingredients[i].FoodItemID = &id
				}
			}
		}
	}

	return l.recipes.Create(ctx, recipe)
}

// PersistGenerated writes a recipe produced by the preference-driven
// generation flow, whose dish photo arrives as already-fetched bytes
// rather than a remote URL.
func (l *Layer) PersistGenerated(ctx context.Context, recipe *model.Recipe, imageBytes []byte, imageContentType string) error {
	if len(imageBytes) > 0 && l.thumbnails != nil {
		if publicURL, err := l.thumbnails.PersistBytes(ctx, imageBytes, imageContentType, recipe.Platform); err != nil {
			l.logger.Warn("generated image persist failed, proceeding without image", "error", err)
			recipe.ImageURL = nil
		} else {
			recipe.ImageURL = &publicURL
		}
	}

	if len(recipe.Ingredients) > 0 {
		snapshot, err := l.foodItems.ListAll(ctx)
		if err != nil {
			l.logger.Warn("food item snapshot unavailable, leaving ingredients unlinked", "error", err)
		} else {
			matcher := foodmatch.NewMatcher(snapshot)
			for i := range recipe.Ingredients {
				if match := matcher.Match(recipe.Ingredients[i].Name); match != nil {
					id := match.ID
					recipe.Ingredients[i].FoodItemID = &id
				}
			}
		}
	}

	return l.recipes.Create(ctx, recipe)
}

// Hydrate reads a recipe plus its children for a response body.
func (l *Layer) Hydrate(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	return l.recipes.Hydrate(ctx, id)
}

// Clone copies an existing recipe under a new owner.
func (l *Layer) Clone(ctx context.Context, sourceID, newOwner uuid.UUID) (*model.Recipe, error) {
	return l.recipes.Clone(ctx, sourceID, newOwner)
}

// FindOwnerMatch and FindGlobalMatch expose the idempotence resolver's
// repository lookups directly (no fuzzy-matching or upload involved).
func (l *Layer) FindOwnerMatch(ctx context.Context, userID uuid.UUID, normalizedURL string) (*model.Recipe, error) {
	return l.recipes.FindOwnerMatch(ctx, userID, normalizedURL)
}

func (l *Layer) FindGlobalMatch(ctx context.Context, normalizedURL string) (*model.Recipe, error) {
	return l.recipes.FindGlobalMatch(ctx, normalizedURL)
}
