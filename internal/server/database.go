package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/repository"
)

// ConnectDB opens the configured store and, when migrate is set, creates the bill tables.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, migrate bool, logger *slog.Logger) (*repository.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := "sqlite"
	if common.IsPostgresDSN(cfg.DSN) {
		backend = "postgres"
	}
	logger.Info("connecting to database", "backend", backend)
	store, err := repository.Open(ctx, repository.ConfigFrom(cfg), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if migrate {
		if err := repository.Migrate(ctx, store.Driver); err != nil {
			logger.Error("failed to migrate database", "error", err)
			_ = store.Close()
			return nil, err
		}
		logger.Info("database schema is up to date")
	}
	logger.Info("successfully connected to database")
	return store, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, store *repository.Store, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := store.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(store *repository.Store, logger *slog.Logger) {
	if store == nil {
		return
	}
	logger.Info("closing database connections")
	if err := store.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	logger.Info("database connections closed")
}
