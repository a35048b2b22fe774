package models

import (
	"strings"
	"time"
)

// TopicPrefix is prepended to a normalised search term to name its topic.
const TopicPrefix = "recipes."

// RecipeSummary is the list representation of a recipe. It never carries
// ingredients or steps.
type RecipeSummary struct {
	PublicID        string   `json:"publicId"`
	Name            string   `json:"name"`
	ImageURL        string   `json:"imageUrl"`
	MealType        MealType `json:"mealType"`
	CookTimeMinutes int      `json:"cookTimeMinutes"`
}

// IngredientView is an ingredient as returned by the detail endpoint.
type IngredientView struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// StepView is a step as returned by the detail endpoint.
type StepView struct {
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// RecipeDetail is the full representation of a recipe.
type RecipeDetail struct {
	RecipeSummary
	Ingredients []IngredientView `json:"ingredients"`
	Steps       []StepView       `json:"steps"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Summary maps a recipe to its list representation.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		PublicID:        r.PublicID,
		Name:            r.Name,
		ImageURL:        r.ImageURL,
		MealType:        r.MealType,
		CookTimeMinutes: r.CookTimeMinutes,
	}
}

// Detail maps a recipe to its full representation.
func (r *Recipe) Detail() *RecipeDetail {
	d := &RecipeDetail{
		RecipeSummary: r.Summary(),
		Ingredients:   make([]IngredientView, len(r.Ingredients)),
		Steps:         make([]StepView, len(r.Steps)),
		CreatedAt:     r.CreatedAt,
	}
	for i, ing := range r.Ingredients {
		d.Ingredients[i] = IngredientView{Name: ing.Name, Quantity: ing.Quantity}
	}
	for i, step := range r.Steps {
		d.Steps[i] = StepView{Description: step.Description, EstimatedMinutes: step.EstimatedMinutes}
	}
	return d
}

// ToSummaries maps recipes to summaries, always returning a non-nil slice.
func ToSummaries(recipes []Recipe) []RecipeSummary {
	out := make([]RecipeSummary, 0, len(recipes))
	for i := range recipes {
		out = append(out, recipes[i].Summary())
	}
	return out
}

// NormalizeTerm trims a search term, lower-cases it and collapses inner
// whitespace. The result is the cache key component and topic suffix.
func NormalizeTerm(term string) string {
	return NormalizeText(strings.TrimSpace(term))
}

// TopicFor returns the broadcast topic for a search term.
func TopicFor(term string) string {
	return TopicPrefix + NormalizeTerm(term)
}
