package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeRepository is the persistence layer's relational half: recipe
// rows plus their ingredient and step children.
type RecipeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecipeRepository(db *sql.DB, logger *slog.Logger) *RecipeRepository {
	return &RecipeRepository{db: db, logger: logger}
}

// FindOwnerMatch returns the most recent recipe owned by userID whose
// source_url begins with normalizedURL, or nil if none exists.
func (r *RecipeRepository) FindOwnerMatch(ctx context.Context, userID uuid.UUID, normalizedURL string) (*model.Recipe, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM recipes
		WHERE user_id = $1 AND source_url LIKE $2 || '%'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, normalizedURL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Hydrate(ctx, id)
}

// FindGlobalMatch returns the most recent recipe (any owner) whose
// source_url begins with normalizedURL, or nil if none exists.
func (r *RecipeRepository) FindGlobalMatch(ctx context.Context, normalizedURL string) (*model.Recipe, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM recipes
		WHERE source_url LIKE $1 || '%'
		ORDER BY created_at DESC
		LIMIT 1
	`, normalizedURL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Hydrate(ctx, id)
}

// Create inserts the recipe row, then the ingredient batch and step batch.
// Per spec, child-row failures are logged and do not roll back the parent
// insert: the recipe is considered created regardless.
func (r *RecipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipes (
			id, user_id, title, source_url, platform,
			prep_time, cook_time, total_time, servings,
			cuisine_origin, meal_type, diet_type,
			calories, proteins, carbs, fats,
			equipment, image_url, generation_mode, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, now()
		)
	`,
		recipe.ID, recipe.UserID, recipe.Title, recipe.SourceURL, recipe.Platform,
		recipe.PrepTime, recipe.CookTime, recipe.TotalTime, recipe.Servings,
		recipe.CuisineOrigin, recipe.MealType, TextArray(recipe.DietType),
		recipe.Calories, recipe.Proteins, recipe.Carbs, recipe.Fats,
		TextArray(recipe.Equipment), recipe.ImageURL, recipe.GenerationMode,
	)
	if err != nil {
		return err
	}

	for i := range recipe.Ingredients {
		ing := &recipe.Ingredients[i]
		ing.RecipeID = recipe.ID
		if ing.ID == uuid.Nil {
			ing.ID = uuid.New()
		}
		if err := r.insertIngredient(ctx, ing); err != nil {
			r.logger.Warn("recipe ingredient insert failed, recipe retained", "error", err, "recipe_id", recipe.ID)
		}
	}

	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		step.RecipeID = recipe.ID
		if step.ID == uuid.Nil {
			step.ID = uuid.New()
		}
		if err := r.insertStep(ctx, step); err != nil {
			r.logger.Warn("recipe step insert failed, recipe retained", "error", err, "recipe_id", recipe.ID)
		}
	}

	return nil
}

func (r *RecipeRepository) insertIngredient(ctx context.Context, ing *model.Ingredient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, recipe_id, name, quantity, unit, food_item_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ing.ID, ing.RecipeID, ing.Name, ing.Quantity, ing.Unit, ing.FoodItemID)
	return err
}

func (r *RecipeRepository) insertStep(ctx context.Context, step *model.Step) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO steps (id, recipe_id, step_order, text, duration, temperature, ingredients_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, step.ID, step.RecipeID, step.Order, step.Text, step.Duration, step.Temperature, TextArray(step.IngredientsUsed))
	return err
}

// Hydrate reads a recipe plus its ingredients (by name) and steps (by
// order) in full, for a response body.
func (r *RecipeRepository) Hydrate(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	var dietType, equipment TextArray

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, source_url, platform,
			prep_time, cook_time, total_time, servings,
			cuisine_origin, meal_type, diet_type,
			calories, proteins, carbs, fats,
			equipment, image_url, generation_mode, created_at
		FROM recipes WHERE id = $1
	`, id).Scan(
		&recipe.ID, &recipe.UserID, &recipe.Title, &recipe.SourceURL, &recipe.Platform,
		&recipe.PrepTime, &recipe.CookTime, &recipe.TotalTime, &recipe.Servings,
		&recipe.CuisineOrigin, &recipe.MealType, &dietType,
		&recipe.Calories, &recipe.Proteins, &recipe.Carbs, &recipe.Fats,
		&equipment, &recipe.ImageURL, &recipe.GenerationMode, &recipe.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	recipe.DietType = []string(dietType)
	recipe.Equipment = []string(equipment)

	ingredients, err := r.getIngredients(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients

	steps, err := r.getSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Steps = steps

	return recipe, nil
}

func (r *RecipeRepository) getIngredients(ctx context.Context, recipeID uuid.UUID) ([]model.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipe_id, name, quantity, unit, food_item_id
		FROM ingredients WHERE recipe_id = $1 ORDER BY name
	`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		var ing model.Ingredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.Name, &ing.Quantity, &ing.Unit, &ing.FoodItemID); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (r *RecipeRepository) getSteps(ctx context.Context, recipeID uuid.UUID) ([]model.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipe_id, step_order, text, duration, temperature, ingredients_used
		FROM steps WHERE recipe_id = $1 ORDER BY step_order
	`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var step model.Step
		var used TextArray
		if err := rows.Scan(&step.ID, &step.RecipeID, &step.Order, &step.Text, &step.Duration, &step.Temperature, &used); err != nil {
			return nil, err
		}
		step.IngredientsUsed = []string(used)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Clone copies an existing recipe's row plus its ingredients and steps
// under a new id and owner. The clone is a complete, independent row
// set; ingredient food_item_id links are preserved since they describe
// the same ingredient text, not the owner.
func (r *RecipeRepository) Clone(ctx context.Context, sourceID uuid.UUID, newOwner uuid.UUID) (*model.Recipe, error) {
	source, err := r.Hydrate(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	clone := &model.Recipe{
		ID:             uuid.New(),
		UserID:         newOwner,
		Title:          source.Title,
		SourceURL:      source.SourceURL,
		Platform:       source.Platform,
		PrepTime:       source.PrepTime,
		CookTime:       source.CookTime,
		TotalTime:      source.TotalTime,
		Servings:       source.Servings,
		CuisineOrigin:  source.CuisineOrigin,
		MealType:       source.MealType,
		DietType:       source.DietType,
		Calories:       source.Calories,
		Proteins:       source.Proteins,
		Carbs:          source.Carbs,
		Fats:           source.Fats,
		Equipment:      source.Equipment,
		ImageURL:       source.ImageURL,
		GenerationMode: source.GenerationMode,
	}

	for _, ing := range source.Ingredients {
		clone.Ingredients = append(clone.Ingredients, model.Ingredient{
			Name:       ing.Name,
			Quantity:   ing.Quantity,
			Unit:       ing.Unit,
			FoodItemID: ing.FoodItemID,
		})
	}
	for _, step := range source.Steps {
		clone.Steps = append(clone.Steps, model.Step{
			Order:           step.Order,
			Text:            step.Text,
			Duration:        step.Duration,
			Temperature:     step.Temperature,
			IngredientsUsed: step.IngredientsUsed,
		})
	}

	if err := r.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}
