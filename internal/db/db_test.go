package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/windoze95/recipe-search-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *recordingWriter) Printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *recordingWriter) all() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.lines, "\n")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	sqlDB, _ := database.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return database
}

func TestOpen_MigratesRecipeTables(t *testing.T) {
	database := openTestDB(t)
	for _, table := range []interface{}{&models.Recipe{}, &models.Ingredient{}, &models.Step{}} {
		if !database.Migrator().HasTable(table) {
			t.Errorf("table for %T not migrated", table)
		}
	}
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	w := &recordingWriter{}
	database := openTestDB(t).Session(&gorm.Session{Logger: newGormLogger(w)})

	var recipe models.Recipe
	err := database.WithContext(context.Background()).Where("public_id = ?", "missing").First(&recipe).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("First = %v, want ErrRecordNotFound", err)
	}
	if out := w.all(); out != "" {
		t.Errorf("missing row was logged: %s", out)
	}

	var count int64
	if err := database.Table("no_such_table").Count(&count).Error; err == nil {
		t.Fatal("query on a missing table should fail")
	}
	if w.all() == "" {
		t.Error("query errors should still be logged")
	}
}
