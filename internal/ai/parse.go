package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
)

const placeholderImageBase = "https://via.placeholder.com/600x400.png?text="

var (
	leadingFence       = regexp.MustCompile("(?s)^```.*?\n")
	trailingFence      = regexp.MustCompile("(?s)```$")
	placeholderEscaper = strings.NewReplacer("&", "%26", "#", "%23", "?", "%3F")
)

// PlaceholderImageURL returns the image used when no photo can be found. The
// name stays readable in the URL.
func PlaceholderImageURL(name string) string {
	return placeholderImageBase + placeholderEscaper.Replace(strings.TrimSpace(name))
}

// candidate mirrors one element of the generated JSON array.
type candidate struct {
	Name            flexString            `json:"name"`
	CookTimeMinutes flexInt               `json:"cookTimeMinutes"`
	MealType        flexString            `json:"mealType"`
	Ingredients     []candidateIngredient `json:"ingredients"`
	Steps           []candidateStep       `json:"steps"`
}

type candidateIngredient struct {
	Name     flexString `json:"name"`
	Quantity flexString `json:"quantity"`
}

type candidateStep struct {
	Description      flexString `json:"description"`
	EstimatedMinutes flexInt    `json:"estimatedMinutes"`
}

// flexString accepts JSON strings, numbers and booleans.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64, bool:
		*s = flexString(fmt.Sprint(v))
		return nil
	}
	return fmt.Errorf("cannot use %s as string", data)
}

// flexInt accepts JSON integers, fractional numbers and numeric strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexInt(math.Round(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return fmt.Errorf("cannot use %q as integer", str)
	}
	*n = flexInt(math.Round(f))
	return nil
}

// ParseRecipeCandidates extracts recipes from a loosely formatted completion.
// Code fences and prose around the JSON array are ignored. Any failure to
// locate or decode the array yields an empty slice. Candidates that are not
// valid recipes are dropped individually.
func ParseRecipeCandidates(raw string) []models.Recipe {
	content := strings.TrimSpace(raw)
	content = leadingFence.ReplaceAllString(content, "")
	content = trailingFence.ReplaceAllString(content, "")

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end <= start {
		logger.Get().Warn("no JSON array found in generation response")
		return []models.Recipe{}
	}

	var candidates []candidate
	if err := json.Unmarshal([]byte(content[start:end+1]), &candidates); err != nil {
		logger.Get().Warn("failed to decode generation response", zap.Error(err))
		return []models.Recipe{}
	}

	recipes := make([]models.Recipe, 0, len(candidates))
	for _, c := range candidates {
		recipe, err := c.toRecipe()
		if err != nil {
			logger.Get().Debug("dropping generated candidate",
				zap.String("name", string(c.Name)),
				zap.Error(err))
			continue
		}
		recipes = append(recipes, *recipe)
	}
	return recipes
}

func (c candidate) toRecipe() (*models.Recipe, error) {
	mealType, ok := models.ParseMealType(string(c.MealType))
	if !ok {
		return nil, fmt.Errorf("%w: unknown meal type %q", models.ErrInvalidRecipe, c.MealType)
	}

	recipe := &models.Recipe{
		Name:            strings.TrimSpace(string(c.Name)),
		MealType:        mealType,
		CookTimeMinutes: int(c.CookTimeMinutes),
		Ingredients:     make([]models.Ingredient, 0, len(c.Ingredients)),
		Steps:           make([]models.Step, 0, len(c.Steps)),
	}
	for _, ing := range c.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{
			Name:     strings.TrimSpace(string(ing.Name)),
			Quantity: strings.TrimSpace(string(ing.Quantity)),
		})
	}
	for _, step := range c.Steps {
		recipe.Steps = append(recipe.Steps, models.Step{
			Description:      strings.TrimSpace(string(step.Description)),
			EstimatedMinutes: int(step.EstimatedMinutes),
		})
	}

	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return recipe, nil
}
