package model

import (
	"time"

	"github.com/google/uuid"
)

// GenerationMode records whether a recipe consumed a free generation.
type GenerationMode string

const (
	GenerationFree    GenerationMode = "free"
	GenerationPremium GenerationMode = "premium"
)

// Recipe is the persisted recipe row plus its hydrated children.
type Recipe struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	SourceURL *string   `json:"sourceUrl,omitempty" db:"source_url"`
	Platform  string    `json:"platform" db:"platform"`

	PrepTime  *int `json:"prepTime,omitempty" db:"prep_time"`
	CookTime  *int `json:"cookTime,omitempty" db:"cook_time"`
	TotalTime *int `json:"totalTime,omitempty" db:"total_time"`
	Servings  *int `json:"servings,omitempty" db:"servings"`

	CuisineOrigin *string  `json:"cuisineOrigin,omitempty" db:"cuisine_origin"`
	MealType      *string  `json:"mealType,omitempty" db:"meal_type"`
	DietType      []string `json:"dietType,omitempty" db:"diet_type"`

	Calories *float64 `json:"calories,omitempty" db:"calories"`
	Proteins *float64 `json:"proteins,omitempty" db:"proteins"`
	Carbs    *float64 `json:"carbs,omitempty" db:"carbs"`
	Fats     *float64 `json:"fats,omitempty" db:"fats"`

	Equipment []string `json:"equipment,omitempty" db:"equipment"`

	ImageURL *string `json:"imageUrl,omitempty" db:"image_url"`

	GenerationMode GenerationMode `json:"generationMode" db:"generation_mode"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
}

// Ingredient is a child row of a recipe.
type Ingredient struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RecipeID   uuid.UUID  `json:"recipeId" db:"recipe_id"`
	Name       string     `json:"name" db:"name"`
	Quantity   *float64   `json:"quantity,omitempty" db:"quantity"`
	Unit       *string    `json:"unit,omitempty" db:"unit"`
	FoodItemID *uuid.UUID `json:"foodItemId,omitempty" db:"food_item_id"`
}

// Step is a child row of a recipe. Order is dense, starting at 1.
type Step struct {
	ID              uuid.UUID `json:"id" db:"id"`
	RecipeID        uuid.UUID `json:"recipeId" db:"recipe_id"`
	Order           int       `json:"order" db:"step_order"`
	Text            string    `json:"text" db:"text"`
	Duration        *int      `json:"duration,omitempty" db:"duration"`
	Temperature     *string   `json:"temperature,omitempty" db:"temperature"`
	IngredientsUsed []string  `json:"ingredientsUsed,omitempty" db:"ingredients_used"`
}

// FoodItem is the external, read-only master food table entry.
type FoodItem struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// Closed-set vocabularies, per language. The LLM prompt enumerates these;
// the admission controller validates mealType/dietTypes against them
// before ever calling the LLM.
var (
	MealTypesByLang = map[string][]string{
		"en": {"breakfast", "lunch", "dinner", "snack", "dessert", "brunch"},
		"fr": {"petit-dejeuner", "dejeuner", "diner", "collation", "dessert", "brunch"},
	}

	DietTypesByLang = map[string][]string{
		"en": {"vegetarian", "vegan", "gluten-free", "dairy-free", "keto", "paleo", "low-carb", "pescatarian"},
		"fr": {"vegetarien", "vegan", "sans-gluten", "sans-lactose", "keto", "paleo", "faible-en-glucides", "pescetarien"},
	}

	EquipmentByLang = map[string][]string{
		"en": {"oven", "stovetop", "microwave", "blender", "food processor", "air fryer", "slow cooker", "pressure cooker", "grill", "mixer"},
		"fr": {"four", "plaque de cuisson", "micro-ondes", "mixeur", "robot culinaire", "friteuse a air", "mijoteuse", "autocuiseur", "grill", "batteur"},
	}

	CuisineOrigins = []string{
		"italian", "french", "mexican", "chinese", "japanese", "indian", "thai",
		"mediterranean", "american", "korean", "vietnamese", "middle-eastern", "other",
	}
)

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ValidMealType reports whether v is in the closed set for lang.
func ValidMealType(lang, v string) bool {
	return inSet(MealTypesByLang[lang], v)
}

// ValidDietType reports whether v is in the closed set for lang.
func ValidDietType(lang, v string) bool {
	return inSet(DietTypesByLang[lang], v)
}

// ValidEquipment reports whether v is in the closed set for lang.
func ValidEquipment(lang, v string) bool {
	return inSet(EquipmentByLang[lang], v)
}

// ValidCuisineOrigin reports whether v is in the (language-independent)
// closed cuisine set.
func ValidCuisineOrigin(v string) bool {
	return inSet(CuisineOrigins, v)
}

// RestrictEquipment filters a free-form equipment list down to the
// per-language closed vocabulary, preserving order.
func RestrictEquipment(lang string, items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if ValidEquipment(lang, it) {
			out = append(out, it)
		}
	}
	return out
}
