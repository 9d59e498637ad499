package ai

// ExtractedIngredient is one ingredient line in the LLM's JSON contract.
type ExtractedIngredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
}

// ExtractedStep is one instruction step in the LLM's JSON contract.
type ExtractedStep struct {
	Order           int      `json:"order"`
	Text            string   `json:"text"`
	Duration        *int     `json:"duration,omitempty"`
	Temperature     *string  `json:"temperature,omitempty"`
	IngredientsUsed []string `json:"ingredientsUsed,omitempty"`
}

// ExtractionResult is the recipe branch of the LLM contract: keys are
// always English, textual values are in the caller's requested language.
type ExtractionResult struct {
	Title         string                `json:"title"`
	PrepTime      *int                  `json:"prepTime,omitempty"`
	CookTime      *int                  `json:"cookTime,omitempty"`
	TotalTime     *int                  `json:"totalTime,omitempty"`
	Servings      *int                  `json:"servings,omitempty"`
	CuisineOrigin *string               `json:"cuisineOrigin,omitempty"`
	MealType      *string               `json:"mealType,omitempty"`
	DietType      []string              `json:"dietType,omitempty"`
	Calories      *float64              `json:"calories,omitempty"`
	Proteins      *float64              `json:"proteins,omitempty"`
	Carbs         *float64              `json:"carbs,omitempty"`
	Fats          *float64              `json:"fats,omitempty"`
	Equipment     []string              `json:"equipment,omitempty"`
	Ingredients   []ExtractedIngredient `json:"ingredients"`
	Steps         []ExtractedStep       `json:"steps"`
}

// notRecipeEnvelope is tried first against the raw response: the LLM
// contract's other branch is a rejection rather than a recipe.
type notRecipeEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GenerationInput is the preference-driven generation flow's request
// shape.
type GenerationInput struct {
	MealType    string
	DietTypes   []string
	Equipment   []string
	Ingredients []string
}
