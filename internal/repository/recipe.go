package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BrowseQuery narrows the recipe listing used by the browse endpoint.
type BrowseQuery struct {
	MinCookTime int
	MaxCookTime int
	MealType    models.MealType // empty means any
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	Size        int
}

// RecipeRepository is a repository for interacting with recipes.
type RecipeRepository struct {
	DB *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository.
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{DB: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching term
// anywhere, with the term's own wildcards escaped.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// SearchRecipes returns recipes whose name or any ingredient name contains
// term. Name matches rank before ingredient-only matches, newest first within
// each group.
func (r *RecipeRepository) SearchRecipes(ctx context.Context, term string, page, size int) ([]models.Recipe, error) {
	pattern := containsPattern(term)
	recipes := []models.Recipe{}

	err := r.DB.WithContext(ctx).
		Where(`LOWER(recipes.name) LIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM ingredients
			WHERE ingredients.recipe_id = recipes.id
			AND LOWER(ingredients.name) LIKE ? ESCAPE '\')`, pattern, pattern).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                `CASE WHEN LOWER(recipes.name) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, recipes.created_at DESC, recipes.id DESC`,
				Vars:               []interface{}{pattern},
				WithoutParentheses: true,
			},
		}).
		Offset(page * size).
		Limit(size).
		Find(&recipes).Error
	if err != nil {
		logger.Get().Error("error searching recipes", zap.String("term", term), zap.Error(err))
		return nil, err
	}

	return recipes, nil
}

// BrowseRecipes lists recipes matching the filter, newest first.
func (r *RecipeRepository) BrowseRecipes(ctx context.Context, q BrowseQuery) ([]models.Recipe, error) {
	recipes := []models.Recipe{}

	tx := r.DB.WithContext(ctx).
		Where("cook_time_minutes BETWEEN ? AND ?", q.MinCookTime, q.MaxCookTime)
	if q.MealType != "" {
		tx = tx.Where("meal_type = ?", q.MealType)
	}
	if q.CreatedFrom != nil {
		tx = tx.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		tx = tx.Where("created_at < ?", *q.CreatedTo)
	}

	err := tx.Order("created_at DESC").Order("id DESC").
		Offset(q.Page * q.Size).
		Limit(q.Size).
		Find(&recipes).Error
	if err != nil {
		logger.Get().Error("error browsing recipes", zap.Error(err))
		return nil, err
	}

	return recipes, nil
}

// FindByPublicID retrieves a recipe with its ingredients and steps.
func (r *RecipeRepository) FindByPublicID(ctx context.Context, publicID string) (*models.Recipe, error) {
	var recipe models.Recipe

	err := r.DB.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("public_id = ?", publicID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{message: "Recipe not found"}
		}
		logger.Get().Error("error retrieving recipe", zap.String("public_id", publicID), zap.Error(err))
		return nil, err
	}

	return &recipe, nil
}

// ExistsByDedupKey reports whether a recipe with the given dedup key is stored.
func (r *RecipeRepository) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Recipe{}).
		Where("dedup_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveRecipe stores a recipe together with its ingredients and steps in one
// transaction. It returns ErrDuplicate when the dedup key is already taken,
// whether found by the pre-check or by the unique index.
func (r *RecipeRepository) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	if recipe.DedupKey == "" {
		return fmt.Errorf("%w: dedup key not set", models.ErrInvalidRecipe)
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Recipe{}).
			Where("dedup_key = ?", recipe.DedupKey).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		return tx.Create(recipe).Error
	})
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicate
		}
		return err
	}

	return nil
}

// DeleteByPublicID removes a recipe and its children.
func (r *RecipeRepository) DeleteByPublicID(ctx context.Context, publicID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.Where("public_id = ?", publicID).First(&recipe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{message: "Recipe not found"}
			}
			return err
		}

		if err := tx.Select("Ingredients", "Steps").Delete(&recipe).Error; err != nil {
			logger.Get().Error("error deleting recipe", zap.String("public_id", publicID), zap.Error(err))
			return err
		}
		return nil
	})
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
