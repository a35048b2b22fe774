package service

import (
	"context"
	"errors"
	"time"

	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/metrics"
	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/repository"
	"go.uber.org/zap"
)

// Per-candidate outcomes of a generation run.
const (
	outcomePersisted = "persisted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

const broadcastTimeout = 5 * time.Second

// Generator produces candidate recipes for a search term. Failures are
// absorbed into an empty result.
type Generator interface {
	Generate(ctx context.Context, term string) []models.Recipe
}

// Broadcaster delivers newly persisted recipes to the subscribers of a topic.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, recipes []models.RecipeSummary) error
}

// Scheduler runs tasks in the background without blocking the caller. Submit
// returns false when the task was dropped.
type Scheduler interface {
	Submit(task func()) bool
}

// GenerationTask asks the generator for recipes about a term, stores the ones
// not already known and broadcasts what was stored.
type GenerationTask struct {
	Generator   Generator
	Repo        repository.RecipeRepo
	Broadcaster Broadcaster
	DedupMode   models.DedupMode
	Timeout     time.Duration

	// OnPersisted runs after at least one recipe for term was stored.
	OnPersisted func(term string)
}

// NewGenerationTask creates a GenerationTask.
func NewGenerationTask(generator Generator, repo repository.RecipeRepo, broadcaster Broadcaster, mode models.DedupMode, timeout time.Duration) *GenerationTask {
	return &GenerationTask{
		Generator:   generator,
		Repo:        repo,
		Broadcaster: broadcaster,
		DedupMode:   mode,
		Timeout:     timeout,
	}
}

// Run processes term under the task timeout. It is meant to be handed to a
// Scheduler and never reports errors to its caller.
func (t *GenerationTask) Run(term string) {
	ctx := context.Background()
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	t.Process(ctx, term)
}

// Process runs one generation for term and returns the summaries of the
// recipes it stored. The broadcast happens even when nothing was stored.
func (t *GenerationTask) Process(ctx context.Context, term string) []models.RecipeSummary {
	start := time.Now()
	topic := models.TopicFor(term)
	log := logger.ForTopic(topic)

	candidates := t.Generator.Generate(ctx, term)
	metrics.GenerationCandidates.Add(float64(len(candidates)))

	saved := make([]models.RecipeSummary, 0, len(candidates))
	for i := range candidates {
		recipe := &candidates[i]
		recipe.DedupKey = recipe.ComputeDedupKey(t.DedupMode)

		outcome := t.persist(ctx, recipe, log)
		metrics.RecordGenerationOutcome(outcome)
		if outcome == outcomePersisted {
			saved = append(saved, recipe.Summary())
		}
	}

	if len(saved) > 0 && t.OnPersisted != nil {
		t.OnPersisted(term)
	}

	// Rows are committed at this point, so the broadcast gets its own deadline
	// even if the task deadline already passed.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastTimeout)
	defer cancel()
	err := t.Broadcaster.Publish(bctx, topic, saved)
	metrics.RecordBroadcast(err)
	if err != nil {
		log.Error("failed to broadcast generated recipes", zap.Error(err))
	}

	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	log.Info("generation finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("persisted", len(saved)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return saved
}

func (t *GenerationTask) persist(ctx context.Context, recipe *models.Recipe, log *zap.Logger) string {
	exists, err := t.Repo.ExistsByDedupKey(ctx, recipe.DedupKey)
	if err != nil {
		log.Error("failed to check for existing recipe",
			zap.String("name", recipe.Name),
			zap.Error(err))
		return outcomeFailed
	}
	if exists {
		log.Debug("recipe already exists, skipping", zap.String("name", recipe.Name))
		return outcomeDuplicate
	}

	if err := t.Repo.SaveRecipe(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Debug("recipe stored concurrently, skipping", zap.String("name", recipe.Name))
			return outcomeDuplicate
		}
		log.Error("failed to save generated recipe",
			zap.String("name", recipe.Name),
			zap.Error(err))
		return outcomeFailed
	}
	return outcomePersisted
}
