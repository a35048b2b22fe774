package db

import (
	"fmt"
	"time"

	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New creates a new database connection.
func New(cfg *config.Config) (*gorm.DB, error) {
	return connectToDatabaseWithRetry(cfg.EnvVars.DatabaseUrl)
}

// connectToDatabaseWithRetry connects to the database and retries if necessary.
func connectToDatabaseWithRetry(databaseURL string) (*gorm.DB, error) {
	logger.Get().Info("connecting to database")
	var database *gorm.DB
	var err error

	start := time.Now()
	for {
		database, err = Open(postgres.Open(databaseURL))
		if err == nil {
			break
		}
		if time.Since(start) > 1*time.Minute {
			return nil, fmt.Errorf("could not connect to database after 1 minute: %w", err)
		}
		logger.Get().Warn("could not connect to database, retrying...", zap.Error(err))
		time.Sleep(5 * time.Second)
	}

	return database, nil
}

// Open opens a database with the given dialector and migrates the recipe
// tables. Unique violations surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	database, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         newGormLogger(zap.NewStdLog(logger.Get())),
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(
		&models.Recipe{},
		&models.Ingredient{},
		&models.Step{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate recipe tables: %w", err)
	}

	return database, nil
}

// newGormLogger reports slow queries and errors through w. A missing row is
// an ordinary 404, not a warning.
func newGormLogger(w gormlogger.Writer) gormlogger.Interface {
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
