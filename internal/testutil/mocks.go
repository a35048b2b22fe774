package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/repository"
)

// --- MockTextProvider ---

// MockTextProvider is a mock implementation of ai.TextProvider.
type MockTextProvider struct {
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *MockTextProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, prompt)
	}
	return "", fmt.Errorf("Complete not configured")
}

// --- MockImageSearchProvider ---

// MockImageSearchProvider is a mock implementation of ai.ImageSearchProvider.
type MockImageSearchProvider struct {
	SearchImageFunc func(ctx context.Context, query string) (string, error)
}

func (m *MockImageSearchProvider) SearchImage(ctx context.Context, query string) (string, error) {
	if m.SearchImageFunc != nil {
		return m.SearchImageFunc(ctx, query)
	}
	return "", fmt.Errorf("SearchImage not configured")
}

// --- MockImageMirror ---

// MockImageMirror is a mock implementation of ai.ImageMirror.
type MockImageMirror struct {
	MirrorImageFunc func(ctx context.Context, sourceURL, recipeName string) (string, error)
}

func (m *MockImageMirror) MirrorImage(ctx context.Context, sourceURL, recipeName string) (string, error) {
	if m.MirrorImageFunc != nil {
		return m.MirrorImageFunc(ctx, sourceURL, recipeName)
	}
	return "", fmt.Errorf("MirrorImage not configured")
}

// --- MockGenerator ---

// MockGenerator is a mock implementation of service.Generator. Every call
// gets fresh copies of the configured recipes.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, term string) []models.Recipe

	mu    sync.Mutex
	Terms []string
}

func (m *MockGenerator) Generate(ctx context.Context, term string) []models.Recipe {
	m.mu.Lock()
	m.Terms = append(m.Terms, term)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, term)
	}
	return []models.Recipe{}
}

// Calls returns how many times Generate ran.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Terms)
}

// --- MockBroadcaster ---

// Broadcast is one recorded Publish call.
type Broadcast struct {
	Topic   string
	Recipes []models.RecipeSummary
}

// MockBroadcaster is a mock implementation of service.Broadcaster that
// records every publish.
type MockBroadcaster struct {
	PublishFunc func(ctx context.Context, topic string, recipes []models.RecipeSummary) error

	mu         sync.Mutex
	broadcasts []Broadcast
}

func (m *MockBroadcaster) Publish(ctx context.Context, topic string, recipes []models.RecipeSummary) error {
	m.mu.Lock()
	m.broadcasts = append(m.broadcasts, Broadcast{Topic: topic, Recipes: recipes})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, recipes)
	}
	return nil
}

// Broadcasts returns a copy of the recorded publishes.
func (m *MockBroadcaster) Broadcasts() []Broadcast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Broadcast, len(m.broadcasts))
	copy(out, m.broadcasts)
	return out
}

// --- Schedulers ---

// InlineScheduler runs submitted tasks synchronously on the caller. With
// Reject set it drops every task instead.
type InlineScheduler struct {
	Reject bool

	mu        sync.Mutex
	submitted int
}

func (s *InlineScheduler) Submit(task func()) bool {
	s.mu.Lock()
	s.submitted++
	s.mu.Unlock()
	if s.Reject {
		return false
	}
	task()
	return true
}

// Submitted returns how many tasks were offered.
func (s *InlineScheduler) Submitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// QueueScheduler holds submitted tasks until RunAll is called.
type QueueScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *QueueScheduler) Submit(task func()) bool {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return true
}

// Pending returns the number of tasks waiting to run.
func (s *QueueScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// RunAll runs and clears every pending task in submission order.
func (s *QueueScheduler) RunAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

// --- MockMailer ---

// SentMail is one recorded SendRecipe call.
type SentMail struct {
	To     string
	Recipe *models.RecipeDetail
}

// MockMailer is a mock implementation of service.Mailer.
type MockMailer struct {
	SendRecipeFunc func(ctx context.Context, to string, recipe *models.RecipeDetail) error

	mu   sync.Mutex
	sent []SentMail
}

func (m *MockMailer) SendRecipe(ctx context.Context, to string, recipe *models.RecipeDetail) error {
	if m.SendRecipeFunc != nil {
		if err := m.SendRecipeFunc(ctx, to, recipe); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.sent = append(m.sent, SentMail{To: to, Recipe: recipe})
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the delivered mails.
func (m *MockMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

// --- MockRecipeRepo ---

// MockRecipeRepo is a mock implementation of repository.RecipeRepo.
type MockRecipeRepo struct {
	SearchRecipesFunc    func(ctx context.Context, term string, page, size int) ([]models.Recipe, error)
	BrowseRecipesFunc    func(ctx context.Context, q repository.BrowseQuery) ([]models.Recipe, error)
	FindByPublicIDFunc   func(ctx context.Context, publicID string) (*models.Recipe, error)
	ExistsByDedupKeyFunc func(ctx context.Context, key string) (bool, error)
	SaveRecipeFunc       func(ctx context.Context, recipe *models.Recipe) error
	DeleteByPublicIDFunc func(ctx context.Context, publicID string) error
}

func (m *MockRecipeRepo) SearchRecipes(ctx context.Context, term string, page, size int) ([]models.Recipe, error) {
	if m.SearchRecipesFunc != nil {
		return m.SearchRecipesFunc(ctx, term, page, size)
	}
	return nil, fmt.Errorf("SearchRecipes not configured")
}

func (m *MockRecipeRepo) BrowseRecipes(ctx context.Context, q repository.BrowseQuery) ([]models.Recipe, error) {
	if m.BrowseRecipesFunc != nil {
		return m.BrowseRecipesFunc(ctx, q)
	}
	return nil, fmt.Errorf("BrowseRecipes not configured")
}

func (m *MockRecipeRepo) FindByPublicID(ctx context.Context, publicID string) (*models.Recipe, error) {
	if m.FindByPublicIDFunc != nil {
		return m.FindByPublicIDFunc(ctx, publicID)
	}
	return nil, fmt.Errorf("FindByPublicID not configured")
}

func (m *MockRecipeRepo) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	if m.ExistsByDedupKeyFunc != nil {
		return m.ExistsByDedupKeyFunc(ctx, key)
	}
	return false, fmt.Errorf("ExistsByDedupKey not configured")
}

func (m *MockRecipeRepo) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	if m.SaveRecipeFunc != nil {
		return m.SaveRecipeFunc(ctx, recipe)
	}
	return fmt.Errorf("SaveRecipe not configured")
}

func (m *MockRecipeRepo) DeleteByPublicID(ctx context.Context, publicID string) error {
	if m.DeleteByPublicIDFunc != nil {
		return m.DeleteByPublicIDFunc(ctx, publicID)
	}
	return fmt.Errorf("DeleteByPublicID not configured")
}
