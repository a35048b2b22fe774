package repository

import (
	"context"

	"github.com/windoze95/recipe-search-api/internal/models"
)

// RecipeRepo is the interface for recipe repository operations.
type RecipeRepo interface {
	SearchRecipes(ctx context.Context, term string, page, size int) ([]models.Recipe, error)
	BrowseRecipes(ctx context.Context, q BrowseQuery) ([]models.Recipe, error)
	FindByPublicID(ctx context.Context, publicID string) (*models.Recipe, error)
	ExistsByDedupKey(ctx context.Context, key string) (bool, error)
	SaveRecipe(ctx context.Context, recipe *models.Recipe) error
	DeleteByPublicID(ctx context.Context, publicID string) error
}
