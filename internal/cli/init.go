// Package cli holds the startup plumbing shared by the khata binaries.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"khata/internal/config"
	"khata/internal/log"
	"khata/internal/storage"
)

// Bootstrap loads the optional .env file and installs the default
// structured logger. Every binary calls this first.
func Bootstrap() *log.Logger {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// MustConfig loads and validates configuration, exiting on failure.
func MustConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// MustSQLite opens the SQLite repository, exiting on failure.
func MustSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}
