package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is the model for a recipe.
type Recipe struct {
	ID              uint         `gorm:"primaryKey"`
	PublicID        string       `gorm:"size:320;uniqueIndex;not null"`
	Name            string       `gorm:"size:255;not null"`
	ImageURL        string       `gorm:"size:500;not null"`
	MealType        MealType     `gorm:"size:50;not null;index"`
	CookTimeMinutes int          `gorm:"not null;index"`
	DedupKey        string       `gorm:"size:400;uniqueIndex;not null"`
	Ingredients     []Ingredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Steps           []Step       `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time    `gorm:"index"`
	UpdatedAt       time.Time
}

// Ingredient is a named quantity owned by a recipe.
type Ingredient struct {
	ID       uint   `gorm:"primaryKey"`
	RecipeID uint   `gorm:"index;not null"`
	Position int    `gorm:"not null"`
	Name     string `gorm:"size:255;not null"`
	Quantity string `gorm:"size:100;not null"`
}

// Step is a single preparation instruction owned by a recipe.
type Step struct {
	ID               uint   `gorm:"primaryKey"`
	RecipeID         uint   `gorm:"index;not null"`
	Position         int    `gorm:"not null"`
	Description      string `gorm:"type:text;not null"`
	EstimatedMinutes int    `gorm:"not null"`
}

// DedupMode selects how strictly two recipes are considered the same.
type DedupMode string

// DedupMode values.
const (
	// DedupByName treats recipes with the same normalised name as duplicates.
	DedupByName DedupMode = "name"
	// DedupByContent additionally requires identical ingredients and steps.
	DedupByContent DedupMode = "content"
)

// ErrInvalidRecipe is wrapped by every Validate failure.
var ErrInvalidRecipe = errors.New("invalid recipe")

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

// Slugify lower-cases a name, strips characters outside [a-z0-9], whitespace
// and '-', and replaces whitespace runs with '-'.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "")
	return slugWhitespace.ReplaceAllString(slug, "-")
}

// NewPublicID derives a public identifier from the recipe name plus a short
// random suffix so that two recipes sharing a name get distinct IDs.
func NewPublicID(name string) string {
	suffix := uuid.New().String()[:6]
	slug := Slugify(name)
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

// BeforeCreate assigns the public ID and list positions and refuses to
// persist an invalid recipe.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.PublicID) == "" {
		r.PublicID = NewPublicID(r.Name)
	}
	for i := range r.Ingredients {
		r.Ingredients[i].Position = i
	}
	for i := range r.Steps {
		r.Steps[i].Position = i
	}
	return nil
}

// Validate checks the invariants every stored recipe must satisfy.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", ErrInvalidRecipe)
	}
	if !r.MealType.Valid() {
		return fmt.Errorf("%w: unknown meal type %q", ErrInvalidRecipe, r.MealType)
	}
	if r.CookTimeMinutes < 0 {
		return fmt.Errorf("%w: cook time cannot be negative", ErrInvalidRecipe)
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("%w: recipe must have at least one ingredient", ErrInvalidRecipe)
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" || strings.TrimSpace(ing.Quantity) == "" {
			return fmt.Errorf("%w: ingredient name and quantity cannot be blank", ErrInvalidRecipe)
		}
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("%w: recipe must have at least one step", ErrInvalidRecipe)
	}
	for _, step := range r.Steps {
		if strings.TrimSpace(step.Description) == "" {
			return fmt.Errorf("%w: step description cannot be blank", ErrInvalidRecipe)
		}
		if step.EstimatedMinutes < 0 {
			return fmt.Errorf("%w: step minutes cannot be negative", ErrInvalidRecipe)
		}
	}
	return nil
}

// ComputeDedupKey returns the identity used to detect an already stored copy
// of this recipe under the given mode. Both modes key on the exact trimmed
// name, so two recipes never collide unless their names are equal.
func (r *Recipe) ComputeDedupKey(mode DedupMode) string {
	name := strings.TrimSpace(r.Name)
	if mode != DedupByContent {
		return name
	}

	h := sha256.New()
	for _, ing := range r.Ingredients {
		h.Write([]byte("i:" + NormalizeText(ing.Name) + "\n"))
	}
	for _, step := range r.Steps {
		h.Write([]byte("s:" + NormalizeText(step.Description) + "\n"))
	}
	return name + "#" + hex.EncodeToString(h.Sum(nil))[:32]
}

// NormalizeText lower-cases s and collapses all whitespace runs to one space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
