package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/db"
	"github.com/windoze95/recipe-search-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestRecipe creates a valid, unsaved recipe with the given name.
func TestRecipe(name string) *models.Recipe {
	return &models.Recipe{
		Name:            name,
		ImageURL:        "https://example.com/" + models.Slugify(name) + ".jpg",
		MealType:        models.MealTypeDinner,
		CookTimeMinutes: 30,
		Ingredients: []models.Ingredient{
			{Name: "Chicken thighs", Quantity: "500 g"},
			{Name: "Garlic", Quantity: "3 cloves"},
		},
		Steps: []models.Step{
			{Description: "Season the chicken", EstimatedMinutes: 5},
			{Description: "Roast until golden", EstimatedMinutes: 25},
		},
	}
}

// TestRecipes returns fresh copies of TestRecipe for each name.
func TestRecipes(names ...string) []models.Recipe {
	out := make([]models.Recipe, len(names))
	for i, name := range names {
		out[i] = *TestRecipe(name)
	}
	return out
}

// TestConfig returns a configuration with every default filled in and
// HuggingFace selected as the generation provider.
func TestConfig() *config.Config {
	return &config.Config{
		EnvVars: config.EnvVars{
			Port:                    "8080",
			AllowedOrigins:          []string{"http://localhost:3000"},
			GenerationProvider:      config.ProviderHuggingFace,
			HuggingFaceAPIKey:       "hf-test",
			HuggingFaceBaseURL:      "https://router.huggingface.co/v1",
			GenerationModel:         "test-model",
			GenerationCount:         5,
			GenerationTimeout:       5 * time.Second,
			GenerationTaskTimeout:   10 * time.Second,
			DedupMode:               string(models.DedupByName),
			UnsplashRequestsPerHour: 50,
			ImageTimeout:            time.Second,
			ImageConcurrency:        3,
			SearchCacheSize:         100,
			SearchCacheTTL:          time.Hour,
			DetailCacheSize:         100,
			DetailCacheTTL:          time.Hour,
			GenerationWorkers:       2,
			GenerationMaxWorkers:    4,
			GenerationQueueSize:     10,
			MailWorkers:             1,
			MailMaxWorkers:          2,
			MailQueueSize:           10,
			SearchRateLimit:         100,
			SMTPPort:                587,
		},
		Prompts: config.DefaultPrompts(),
	}
}

// NewTestDB opens a migrated in-memory SQLite database private to t.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	database, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return database
}
