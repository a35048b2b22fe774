package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/repository"
	"github.com/windoze95/recipe-search-api/internal/testutil"
)

func newRepo(t *testing.T) *repository.RecipeRepository {
	t.Helper()
	return repository.NewRecipeRepository(testutil.NewTestDB(t))
}

func save(t *testing.T, repo *repository.RecipeRepository, recipe *models.Recipe) *models.Recipe {
	t.Helper()
	recipe.DedupKey = recipe.ComputeDedupKey(models.DedupByName)
	if err := repo.SaveRecipe(context.Background(), recipe); err != nil {
		t.Fatalf("SaveRecipe(%q) error: %v", recipe.Name, err)
	}
	return recipe
}

func names(recipes []models.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Name
	}
	return out
}

func TestSaveRecipe_AssignsIdentity(t *testing.T) {
	repo := newRepo(t)
	recipe := save(t, repo, testutil.TestRecipe("Garlic Chicken"))

	if recipe.ID == 0 {
		t.Error("ID should be assigned")
	}
	if recipe.PublicID == "" {
		t.Error("PublicID should be assigned")
	}
	if recipe.CreatedAt.IsZero() {
		t.Error("CreatedAt should be assigned")
	}
}

func TestSaveRecipe_Duplicate(t *testing.T) {
	repo := newRepo(t)
	save(t, repo, testutil.TestRecipe("Garlic Chicken"))

	dup := testutil.TestRecipe("  Garlic Chicken ")
	dup.DedupKey = dup.ComputeDedupKey(models.DedupByName)
	err := repo.SaveRecipe(context.Background(), dup)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("SaveRecipe() = %v, want ErrDuplicate", err)
	}

	exists, err := repo.ExistsByDedupKey(context.Background(), "Garlic Chicken")
	if err != nil || !exists {
		t.Errorf("ExistsByDedupKey = %v, %v, want true", exists, err)
	}
}

func TestSaveRecipe_RequiresDedupKey(t *testing.T) {
	repo := newRepo(t)
	err := repo.SaveRecipe(context.Background(), testutil.TestRecipe("No Key"))
	if !errors.Is(err, models.ErrInvalidRecipe) {
		t.Errorf("SaveRecipe() = %v, want ErrInvalidRecipe", err)
	}
}

func TestSaveRecipe_RejectsInvalid(t *testing.T) {
	repo := newRepo(t)
	recipe := testutil.TestRecipe("Stepless")
	recipe.Steps = nil
	recipe.DedupKey = "stepless"

	if err := repo.SaveRecipe(context.Background(), recipe); !errors.Is(err, models.ErrInvalidRecipe) {
		t.Errorf("SaveRecipe() = %v, want ErrInvalidRecipe", err)
	}
	if exists, _ := repo.ExistsByDedupKey(context.Background(), "stepless"); exists {
		t.Error("invalid recipe should not be stored")
	}
}

func TestSaveRecipe_ConcurrentSameKey(t *testing.T) {
	repo := newRepo(t)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recipe := testutil.TestRecipe("Race Soup")
			recipe.DedupKey = recipe.ComputeDedupKey(models.DedupByName)
			errs[i] = repo.SaveRecipe(context.Background(), recipe)
		}(i)
	}
	wg.Wait()

	stored := 0
	for _, err := range errs {
		switch {
		case err == nil:
			stored++
		case errors.Is(err, repository.ErrDuplicate):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if stored != 1 {
		t.Errorf("stored = %d, want exactly 1", stored)
	}
}

func TestFindByPublicID_WithChildrenInOrder(t *testing.T) {
	repo := newRepo(t)
	recipe := testutil.TestRecipe("Layered Lasagna")
	recipe.Steps = []models.Step{
		{Description: "Make sauce", EstimatedMinutes: 30},
		{Description: "Layer", EstimatedMinutes: 10},
		{Description: "Bake", EstimatedMinutes: 45},
	}
	save(t, repo, recipe)

	found, err := repo.FindByPublicID(context.Background(), recipe.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID error: %v", err)
	}
	if len(found.Ingredients) != 2 {
		t.Errorf("ingredients = %d, want 2", len(found.Ingredients))
	}
	want := []string{"Make sauce", "Layer", "Bake"}
	for i, step := range found.Steps {
		if step.Description != want[i] {
			t.Errorf("step %d = %q, want %q", i, step.Description, want[i])
		}
	}
}

func TestFindByPublicID_NotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.FindByPublicID(context.Background(), "missing")
	var nf repository.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("FindByPublicID() = %v, want NotFoundError", err)
	}
}

func TestSearchRecipes_NameMatchesFirst(t *testing.T) {
	repo := newRepo(t)

	withChicken := testutil.TestRecipe("Garden Stew")
	withChicken.Ingredients = []models.Ingredient{{Name: "Chicken stock", Quantity: "1 l"}}
	save(t, repo, withChicken)
	save(t, repo, testutil.TestRecipe("Chicken Curry"))
	save(t, repo, testutil.TestRecipe("Lemon CHICKEN"))
	unrelated := testutil.TestRecipe("Fruit Salad")
	unrelated.Ingredients = []models.Ingredient{{Name: "Apple", Quantity: "2"}}
	save(t, repo, unrelated)

	results, err := repo.SearchRecipes(context.Background(), "chicken", 0, 10)
	if err != nil {
		t.Fatalf("SearchRecipes error: %v", err)
	}
	got := names(results)
	want := []string{"Lemon CHICKEN", "Chicken Curry", "Garden Stew"}
	if len(got) != len(want) {
		t.Fatalf("results = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("results = %v, want %v", got, want)
			break
		}
	}
	if len(results[0].Ingredients) != 0 {
		t.Error("search results should not load ingredients")
	}
}

func TestSearchRecipes_Paging(t *testing.T) {
	repo := newRepo(t)
	for _, name := range []string{"Soup A", "Soup B", "Soup C"} {
		save(t, repo, testutil.TestRecipe(name))
	}

	first, _ := repo.SearchRecipes(context.Background(), "soup", 0, 2)
	second, _ := repo.SearchRecipes(context.Background(), "soup", 1, 2)
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("pages = %v / %v", names(first), names(second))
	}
	if second[0].Name != "Soup A" {
		t.Errorf("oldest should be last, got %q", second[0].Name)
	}
}

func TestSearchRecipes_EscapesWildcards(t *testing.T) {
	repo := newRepo(t)
	save(t, repo, testutil.TestRecipe("100% Rye Bread"))
	save(t, repo, testutil.TestRecipe("1000 Island Dip"))

	results, err := repo.SearchRecipes(context.Background(), "100%", 0, 10)
	if err != nil {
		t.Fatalf("SearchRecipes error: %v", err)
	}
	if got := names(results); len(got) != 1 || got[0] != "100% Rye Bread" {
		t.Errorf("results = %v, want only the literal match", got)
	}

	results, _ = repo.SearchRecipes(context.Background(), "_", 0, 10)
	if len(results) != 0 {
		t.Errorf("underscore should match literally, got %v", names(results))
	}
}

func TestBrowseRecipes_Filters(t *testing.T) {
	repo := newRepo(t)
	now := time.Now().UTC()

	quick := testutil.TestRecipe("Quick Salad")
	quick.MealType = models.MealTypeSalad
	quick.CookTimeMinutes = 5
	save(t, repo, quick)

	old := testutil.TestRecipe("Old Roast")
	old.CookTimeMinutes = 120
	old.CreatedAt = now.AddDate(0, -2, 0)
	save(t, repo, old)

	save(t, repo, testutil.TestRecipe("Weeknight Dinner"))

	all, err := repo.BrowseRecipes(context.Background(), repository.BrowseQuery{MaxCookTime: 180, Size: 10})
	if err != nil {
		t.Fatalf("BrowseRecipes error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %v, want 3", names(all))
	}

	salads, _ := repo.BrowseRecipes(context.Background(), repository.BrowseQuery{MaxCookTime: 180, MealType: models.MealTypeSalad, Size: 10})
	if got := names(salads); len(got) != 1 || got[0] != "Quick Salad" {
		t.Errorf("salads = %v", got)
	}

	ranged, _ := repo.BrowseRecipes(context.Background(), repository.BrowseQuery{MinCookTime: 10, MaxCookTime: 60, Size: 10})
	if got := names(ranged); len(got) != 1 || got[0] != "Weeknight Dinner" {
		t.Errorf("10-60 minutes = %v", got)
	}

	from := now.AddDate(0, 0, -7)
	recent, _ := repo.BrowseRecipes(context.Background(), repository.BrowseQuery{MaxCookTime: 180, CreatedFrom: &from, Size: 10})
	for _, r := range recent {
		if r.Name == "Old Roast" {
			t.Error("recent window should exclude old recipes")
		}
	}
}

func TestDeleteByPublicID(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewRecipeRepository(database)
	recipe := save(t, repo, testutil.TestRecipe("Doomed Pie"))

	if err := repo.DeleteByPublicID(context.Background(), recipe.PublicID); err != nil {
		t.Fatalf("DeleteByPublicID error: %v", err)
	}
	if _, err := repo.FindByPublicID(context.Background(), recipe.PublicID); err == nil {
		t.Error("recipe should be gone")
	}

	var orphans int64
	database.Model(&models.Ingredient{}).Where("recipe_id = ?", recipe.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("orphan ingredients = %d, want 0", orphans)
	}

	var nf repository.NotFoundError
	if err := repo.DeleteByPublicID(context.Background(), recipe.PublicID); !errors.As(err, &nf) {
		t.Errorf("second delete = %v, want NotFoundError", err)
	}
}
