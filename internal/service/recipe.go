package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/windoze95/recipe-search-api/internal/ai"
	"github.com/windoze95/recipe-search-api/internal/cache"
	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/metrics"
	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Paging limits shared by search and browse.
const (
	MaxPageSize        = 50
	DefaultMinCookTime = 0
	DefaultMaxCookTime = 180
	DefaultBrowseSize  = 20

	mailTimeout = 30 * time.Second

	// Upper bound for a store read shared by concurrent callers.
	sharedReadTimeout = 10 * time.Second
)

// Mailer delivers a recipe to an email address.
type Mailer interface {
	SendRecipe(ctx context.Context, to string, recipe *models.RecipeDetail) error
}

// RecipeService is the business logic layer for recipe-related operations.
type RecipeService struct {
	Cfg         *config.Config
	Repo        repository.RecipeRepo
	Generation  *GenerationTask
	Scheduler   Scheduler
	SearchCache *cache.Region[[]models.RecipeSummary]
	DetailCache *cache.Region[*models.RecipeDetail]

	// Optional collaborators.
	TermPolicy    TermPolicy
	Mailer        Mailer
	MailScheduler Scheduler

	Now func() time.Time

	group singleflight.Group

	// cacheGen counts invalidations. A read that started before one must not
	// repopulate the cache with what it found.
	cacheMu  sync.Mutex
	cacheGen uint64
}

// BrowseFilter holds the raw browse parameters. Nil bounds take defaults.
type BrowseFilter struct {
	MinCookTime *int
	MaxCookTime *int
	MealType    string
	DateFilter  string
	Page        int
	Size        int
}

// IngredientInput is an ingredient in a create request.
type IngredientInput struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// StepInput is a step in a create request.
type StepInput struct {
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// CreateRecipeRequest is the payload for creating a recipe directly.
type CreateRecipeRequest struct {
	Name            string            `json:"name"`
	ImageURL        string            `json:"imageUrl"`
	MealType        string            `json:"mealType"`
	CookTimeMinutes int               `json:"cookTimeMinutes"`
	Ingredients     []IngredientInput `json:"ingredients"`
	Steps           []StepInput       `json:"steps"`
}

// NewRecipeService is the constructor function for initializing a new
// RecipeService. Stored generation results invalidate the cached searches
// for their term.
func NewRecipeService(cfg *config.Config, repo repository.RecipeRepo, generation *GenerationTask, scheduler Scheduler) *RecipeService {
	e := cfg.EnvVars
	s := &RecipeService{
		Cfg:         cfg,
		Repo:        repo,
		Generation:  generation,
		Scheduler:   scheduler,
		SearchCache: cache.NewRegion[[]models.RecipeSummary]("search", e.SearchCacheSize, e.SearchCacheTTL),
		DetailCache: cache.NewRegion[*models.RecipeDetail]("detail", e.DetailCacheSize, e.DetailCacheTTL),
		Now:         time.Now,
	}
	if generation != nil {
		generation.OnPersisted = s.InvalidateTerm
	}
	return s
}

// Search returns stored recipes matching term and schedules a background
// generation for it, whether or not the answer came from the cache.
func (s *RecipeService) Search(ctx context.Context, term string, page, size int) ([]models.RecipeSummary, error) {
	norm := models.NormalizeTerm(term)
	if norm == "" {
		return nil, invalid("search term cannot be blank")
	}
	if page < 0 {
		return nil, invalid("page cannot be negative")
	}
	if size <= 0 || size > MaxPageSize {
		return nil, invalid(fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}

	results, err := s.cachedSearch(ctx, norm, page, size)
	s.scheduleGeneration(norm)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	return results, nil
}

func (s *RecipeService) cachedSearch(ctx context.Context, term string, page, size int) ([]models.RecipeSummary, error) {
	key := cache.SearchKey(term, page, size)
	if cached, ok := s.SearchCache.Get(key); ok {
		return cached, nil
	}

	gen := s.currentCacheGen()
	v, err := s.sharedRead(ctx, "search:"+key, func(ctx context.Context) (interface{}, error) {
		recipes, err := s.Repo.SearchRecipes(ctx, term, page, size)
		if err != nil {
			return nil, err
		}
		summaries := models.ToSummaries(recipes)
		s.cacheIfCurrent(gen, func() { s.SearchCache.Add(key, summaries) })
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.RecipeSummary), nil
}

func (s *RecipeService) scheduleGeneration(term string) {
	if s.Generation == nil || s.Scheduler == nil {
		return
	}
	log := logger.ForTopic(models.TopicFor(term))
	if s.TermPolicy != nil && !s.TermPolicy.Allowed(term) {
		log.Info("skipping generation for disallowed term")
		return
	}
	if !s.Scheduler.Submit(func() { s.Generation.Run(term) }) {
		log.Warn("generation not scheduled, pool saturated")
	}
}

// sharedRead runs read once for all concurrent callers of key. The read gets
// its own bounded context so one caller going away does not fail the others;
// each caller still stops waiting when its own ctx is done.
func (s *RecipeService) sharedRead(ctx context.Context, key string, read func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		return read(rctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *RecipeService) currentCacheGen() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// cacheIfCurrent runs add unless the caches were invalidated after gen.
func (s *RecipeService) cacheIfCurrent(gen uint64, add func()) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen == gen {
		add()
	}
}

// invalidate runs drop and makes reads already in flight skip caching.
func (s *RecipeService) invalidate(drop func()) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	drop()
}

// InvalidateTerm drops every cached search page for term.
func (s *RecipeService) InvalidateTerm(term string) {
	norm := models.NormalizeTerm(term)
	var removed int
	s.invalidate(func() {
		removed = s.SearchCache.RemovePrefix(cache.SearchPrefix(norm))
	})
	logger.ForTopic(models.TopicFor(norm)).Debug("invalidated cached searches", zap.Int("entries", removed))
}

// Get returns the full recipe for publicID.
func (s *RecipeService) Get(ctx context.Context, publicID string) (*models.RecipeDetail, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, invalid("recipe id cannot be blank")
	}

	if cached, ok := s.DetailCache.Get(publicID); ok {
		return cached, nil
	}

	gen := s.currentCacheGen()
	v, err := s.sharedRead(ctx, "detail:"+publicID, func(ctx context.Context) (interface{}, error) {
		recipe, err := s.Repo.FindByPublicID(ctx, publicID)
		if err != nil {
			return nil, err
		}
		detail := recipe.Detail()
		s.cacheIfCurrent(gen, func() { s.DetailCache.Add(publicID, detail) })
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.RecipeDetail), nil
}

// Browse lists recipes by cook time, meal type and creation window.
func (s *RecipeService) Browse(ctx context.Context, f BrowseFilter) ([]models.RecipeSummary, error) {
	q := repository.BrowseQuery{
		MinCookTime: DefaultMinCookTime,
		MaxCookTime: DefaultMaxCookTime,
		Page:        f.Page,
		Size:        f.Size,
	}
	if f.MinCookTime != nil {
		q.MinCookTime = *f.MinCookTime
	}
	if f.MaxCookTime != nil {
		q.MaxCookTime = *f.MaxCookTime
	}
	if q.MinCookTime < 0 || q.MaxCookTime < q.MinCookTime {
		return nil, invalid("cook time range is invalid")
	}
	if q.Size == 0 {
		q.Size = DefaultBrowseSize
	}
	if q.Page < 0 {
		return nil, invalid("page cannot be negative")
	}
	if q.Size < 0 || q.Size > MaxPageSize {
		return nil, invalid(fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}

	if strings.TrimSpace(f.MealType) != "" {
		mealType, ok := models.ParseMealType(f.MealType)
		if !ok {
			return nil, invalid(fmt.Sprintf("unknown meal type %q", f.MealType))
		}
		q.MealType = mealType
	}

	dateFilter := models.DateFilterAll
	if strings.TrimSpace(f.DateFilter) != "" {
		parsed, ok := models.ParseDateFilter(f.DateFilter)
		if !ok {
			return nil, invalid(fmt.Sprintf("unknown date filter %q", f.DateFilter))
		}
		dateFilter = parsed
	}
	q.CreatedFrom, q.CreatedTo = dateFilter.Range(s.Now().UTC())

	recipes, err := s.Repo.BrowseRecipes(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to browse recipes: %w", err)
	}
	return models.ToSummaries(recipes), nil
}

// MealTypes returns every meal type.
func (s *RecipeService) MealTypes() []models.MealType {
	return models.MealTypes()
}

// DateFilters returns every date filter.
func (s *RecipeService) DateFilters() []models.DateFilter {
	return models.DateFilters()
}

// Create validates and stores a recipe supplied by the caller. A recipe whose
// dedup key is already taken yields repository.ErrDuplicate.
func (s *RecipeService) Create(ctx context.Context, req CreateRecipeRequest) (*models.RecipeDetail, error) {
	mealType, ok := models.ParseMealType(req.MealType)
	if !ok {
		return nil, invalid(fmt.Sprintf("unknown meal type %q", req.MealType))
	}

	recipe := &models.Recipe{
		Name:            strings.TrimSpace(req.Name),
		ImageURL:        strings.TrimSpace(req.ImageURL),
		MealType:        mealType,
		CookTimeMinutes: req.CookTimeMinutes,
	}
	for _, ing := range req.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{
			Name:     strings.TrimSpace(ing.Name),
			Quantity: strings.TrimSpace(ing.Quantity),
		})
	}
	for _, step := range req.Steps {
		recipe.Steps = append(recipe.Steps, models.Step{
			Description:      strings.TrimSpace(step.Description),
			EstimatedMinutes: step.EstimatedMinutes,
		})
	}
	if err := recipe.Validate(); err != nil {
		return nil, invalid(err.Error())
	}
	if recipe.ImageURL == "" {
		recipe.ImageURL = ai.PlaceholderImageURL(recipe.Name)
	}
	recipe.DedupKey = recipe.ComputeDedupKey(models.DedupMode(s.Cfg.EnvVars.DedupMode))

	if err := s.Repo.SaveRecipe(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.invalidate(s.SearchCache.Purge)
	return recipe.Detail(), nil
}

// Delete removes the recipe and everything cached about it.
func (s *RecipeService) Delete(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return invalid("recipe id cannot be blank")
	}

	if err := s.Repo.DeleteByPublicID(ctx, publicID); err != nil {
		return err
	}

	s.invalidate(func() {
		s.DetailCache.Remove(publicID)
		s.SearchCache.Purge()
	})
	return nil
}

// EmailRecipe queues delivery of a recipe to email.
func (s *RecipeService) EmailRecipe(ctx context.Context, email, publicID string) error {
	email = strings.TrimSpace(email)
	if !govalidator.IsEmail(email) {
		return invalid("invalid email format")
	}
	if s.Mailer == nil || s.MailScheduler == nil {
		return ErrMailDisabled
	}

	detail, err := s.Get(ctx, publicID)
	if err != nil {
		return err
	}

	submitted := s.MailScheduler.Submit(func() {
		mctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.Mailer.SendRecipe(mctx, email, detail); err != nil {
			metrics.MailTotal.WithLabelValues("error").Inc()
			logger.Get().Error("failed to email recipe",
				zap.String("public_id", detail.PublicID),
				zap.Error(err))
			return
		}
		metrics.MailTotal.WithLabelValues("sent").Inc()
	})
	if !submitted {
		return ErrMailBusy
	}
	return nil
}
