package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/windoze95/recipe-search-api/internal/ai"
	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/handlers"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/mail"
	"github.com/windoze95/recipe-search-api/internal/middleware"
	"github.com/windoze95/recipe-search-api/internal/models"
	"github.com/windoze95/recipe-search-api/internal/pubsub"
	"github.com/windoze95/recipe-search-api/internal/repository"
	"github.com/windoze95/recipe-search-api/internal/s3"
	"github.com/windoze95/recipe-search-api/internal/service"
	"github.com/windoze95/recipe-search-api/internal/worker"
	"github.com/windoze95/recipe-search-api/internal/ws"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the wired HTTP engine plus the background components it owns.
type App struct {
	Engine         *gin.Engine
	Hub            *ws.Hub
	GenerationPool *worker.Pool
	MailPool       *worker.Pool

	redis  *redis.Client
	relay  *pubsub.Relay
	cancel context.CancelFunc
}

// SetupRouter sets up the Gin router and starts the hub, the worker pools
// and, when configured, the Redis relay.
func SetupRouter(cfg *config.Config, database *gorm.DB) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{cancel: cancel}

	// Create default Gin router
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.EnvVars.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, middleware.IDHeaderName, "X-Request-ID")
	r.Use(cors.New(corsConfig))

	// Add request ID middleware for request correlation
	r.Use(logger.RequestIDMiddleware())

	// Ping route for testing
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Subscriber fan-out
	app.Hub = ws.NewHub()
	go app.Hub.Run(ctx)

	var broadcaster service.Broadcaster = app.Hub
	if cfg.EnvVars.RedisURL != "" {
		client, err := pubsub.NewRedisClient(ctx, cfg.EnvVars.RedisURL)
		if err != nil {
			cancel()
			return nil, err
		}
		app.redis = client
		app.relay = pubsub.NewRelay(client, app.Hub)
		if err := app.relay.Start(ctx); err != nil {
			cancel()
			client.Close()
			return nil, err
		}
		broadcaster = pubsub.NewRedisBroadcaster(client)
	}

	// AI provider setup
	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		app.closeRedis()
		cancel()
		return nil, err
	}

	// Background pools
	e := cfg.EnvVars
	app.GenerationPool = worker.NewPool(worker.Options{
		Name:        "generation",
		CoreWorkers: e.GenerationWorkers,
		MaxWorkers:  e.GenerationMaxWorkers,
		QueueSize:   e.GenerationQueueSize,
	})

	// Recipe-related routes setup
	recipeRepo := repository.NewRecipeRepository(database)
	generation := service.NewGenerationTask(generator, recipeRepo, broadcaster, models.DedupMode(e.DedupMode), e.GenerationTaskTimeout)
	recipeService := service.NewRecipeService(cfg, recipeRepo, generation, app.GenerationPool)
	recipeService.TermPolicy = service.NewProfanityPolicy()

	if cfg.MailEnabled() {
		app.MailPool = worker.NewPool(worker.Options{
			Name:        "mail",
			CoreWorkers: e.MailWorkers,
			MaxWorkers:  e.MailMaxWorkers,
			QueueSize:   e.MailQueueSize,
		})
		recipeService.Mailer = mail.NewSMTPMailer(cfg)
		recipeService.MailScheduler = app.MailPool
	}

	recipeHandler := handlers.NewRecipeHandler(recipeService)
	subscriptionHandler := ws.NewSubscriptionHandler(app.Hub, e.AllowedOrigins)

	apiPublic := r.Group("/v1")
	{
		// Search, answered from the store while generation runs behind it
		apiPublic.GET("/recipes", middleware.RateLimitByIP(ctx, e.SearchRateLimit, time.Minute, 10*time.Minute), recipeHandler.SearchRecipes)

		apiPublic.GET("/recipes/all", recipeHandler.BrowseRecipes)
		apiPublic.GET("/recipes/meal-types", recipeHandler.ListMealTypes)
		apiPublic.GET("/recipes/date-filters", recipeHandler.ListDateFilters)
		apiPublic.GET("/recipes/:public_id", recipeHandler.GetRecipe)
		apiPublic.POST("/recipes/:public_id/email", recipeHandler.EmailRecipe)

		// Generation results for a search term
		apiPublic.GET("/ws/recipes", subscriptionHandler.HandleSubscribe)
	}

	apiProtected := r.Group("/v1")
	{
		apiProtected.Use(middleware.CheckIDHeader(e.IDHeader))

		apiProtected.POST("/recipes", recipeHandler.CreateRecipe)
		apiProtected.DELETE("/recipes/:public_id", recipeHandler.DeleteRecipe)
	}

	app.Engine = r
	return app, nil
}

// newGenerator builds the recipe generator for the configured backends.
func newGenerator(ctx context.Context, cfg *config.Config) (*ai.RecipeGenerator, error) {
	e := cfg.EnvVars

	var text ai.TextProvider
	switch e.GenerationProvider {
	case config.ProviderAnthropic:
		text = ai.NewAnthropicProvider(e.AnthropicAPIKey, e.AnthropicModel, e.GenerationTimeout)
	case config.ProviderHuggingFace:
		text = ai.NewHuggingFaceProvider(e.HuggingFaceAPIKey, e.HuggingFaceBaseURL, e.GenerationModel, e.GenerationTimeout)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", e.GenerationProvider)
	}

	var images ai.ImageSearchProvider
	if e.UnsplashAPIKey != "" {
		images = ai.NewUnsplashProvider(e.UnsplashAPIKey, e.UnsplashRequestsPerHour, e.ImageTimeout)
	} else {
		logger.Get().Info("image search disabled, recipes get placeholder images")
	}

	var mirror ai.ImageMirror
	if e.S3Bucket != "" {
		m, err := s3.NewImageMirror(ctx, cfg, e.ImageTimeout)
		if err != nil {
			return nil, err
		}
		mirror = m
	}

	return ai.NewRecipeGenerator(text, images, mirror, cfg.Prompts, e.GenerationCount, e.ImageConcurrency), nil
}

// Shutdown drains the pools, then stops the relay and the hub.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.GenerationPool != nil {
		if err := a.GenerationPool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("generation pool: %w", err))
		}
	}
	if a.MailPool != nil {
		if err := a.MailPool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mail pool: %w", err))
		}
	}

	a.cancel()
	if a.relay != nil {
		select {
		case <-a.relay.Done():
		case <-ctx.Done():
		}
	}
	a.closeRedis()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Get().Info("background components stopped")
	return nil
}

func (a *App) closeRedis() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		logger.Get().Warn("failed to close redis client", zap.Error(err))
	}
}
