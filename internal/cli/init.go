// Package cli provides common initialization shared by cmd/financas and
// cmd/financas-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"financas/internal/config"
	"financas/internal/engine"
	applog "financas/internal/log"
	"financas/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *applog.Logger {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// BuildEngine wires a reconciliation engine from the configured category
// polarity and display order.
func BuildEngine(cfg *config.Config, store *storage.SQLiteRepository, logger *applog.Logger) *engine.Engine {
	polarity := engine.NewPolarityConfig(cfg.IncomeCategories, cfg.ExpenseCategories)
	order := engine.NewCategoryOrder(cfg.CategoryOrder)
	engineLog := logger.Logger.With(applog.FieldComponent, applog.ComponentEngine)
	return engine.New(store, polarity, order, engineLog)
}
