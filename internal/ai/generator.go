package ai

import (
	"context"
	"strings"

	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecipeGenerator turns a search term into candidate recipes with images.
type RecipeGenerator struct {
	Text             TextProvider
	Images           ImageSearchProvider // nil means placeholders only
	Mirror           ImageMirror         // optional
	Prompts          *config.Prompts
	Count            int
	ImageConcurrency int
}

// NewRecipeGenerator creates a RecipeGenerator.
func NewRecipeGenerator(text TextProvider, images ImageSearchProvider, mirror ImageMirror, prompts *config.Prompts, count, imageConcurrency int) *RecipeGenerator {
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	if count <= 0 {
		count = 5
	}
	if imageConcurrency <= 0 {
		imageConcurrency = 1
	}
	return &RecipeGenerator{
		Text:             text,
		Images:           images,
		Mirror:           mirror,
		Prompts:          prompts,
		Count:            count,
		ImageConcurrency: imageConcurrency,
	}
}

// Generate asks the text backend for recipes about term and resolves an image
// for each valid candidate. It never fails: any backend or parse error yields
// an empty slice.
func (g *RecipeGenerator) Generate(ctx context.Context, term string) []models.Recipe {
	log := logger.ForTopic(models.TopicFor(term))

	system, err := config.RenderPrompt(g.Prompts.Generation.System, g.promptData(term))
	if err != nil {
		log.Error("failed to render system prompt", zap.Error(err))
		return []models.Recipe{}
	}
	prompt, err := config.RenderPrompt(g.Prompts.Generation.User, g.promptData(term))
	if err != nil {
		log.Error("failed to render generation prompt", zap.Error(err))
		return []models.Recipe{}
	}

	raw, err := g.Text.Complete(ctx, system, prompt)
	if err != nil {
		log.Error("failed to generate recipes", zap.Error(err))
		return []models.Recipe{}
	}

	recipes := ParseRecipeCandidates(raw)
	if len(recipes) == 0 {
		return recipes
	}

	g.resolveImages(ctx, recipes)
	log.Info("generated recipe candidates", zap.Int("count", len(recipes)))
	return recipes
}

func (g *RecipeGenerator) promptData(term string) map[string]interface{} {
	return map[string]interface{}{
		"Term":      term,
		"Count":     g.Count,
		"MealTypes": strings.Join(models.MealTypeNames(), ", "),
	}
}

// resolveImages fills ImageURL on every recipe. Each goroutine owns one index.
func (g *RecipeGenerator) resolveImages(ctx context.Context, recipes []models.Recipe) {
	var eg errgroup.Group
	eg.SetLimit(g.ImageConcurrency)

	for i := range recipes {
		i := i
		eg.Go(func() error {
			recipes[i].ImageURL = g.imageFor(ctx, recipes[i].Name)
			return nil
		})
	}
	_ = eg.Wait()
}

func (g *RecipeGenerator) imageFor(ctx context.Context, name string) string {
	if g.Images == nil {
		return PlaceholderImageURL(name)
	}

	imageURL, err := g.Images.SearchImage(ctx, name)
	if err != nil || imageURL == "" {
		logger.Get().Warn("image lookup failed, using placeholder",
			zap.String("name", name),
			zap.Error(err))
		return PlaceholderImageURL(name)
	}

	if g.Mirror == nil {
		return imageURL
	}
	mirrored, err := g.Mirror.MirrorImage(ctx, imageURL, name)
	if err != nil {
		logger.Get().Warn("image mirror failed, keeping source URL",
			zap.String("name", name),
			zap.Error(err))
		return imageURL
	}
	return mirrored
}
