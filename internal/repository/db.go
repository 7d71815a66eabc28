package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom copies the database section of the application config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// Store is an open ent SQL driver. Pool is set only for Postgres.
type Store struct {
	Driver *entsql.Driver
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open picks the backend from the DSN scheme.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if common.IsPostgresDSN(cfg.DSN) {
		return OpenPostgres(ctx, cfg, logger)
	}
	return OpenSQLite(ctx, cfg.DSN, logger)
}

// OpenPostgres creates a pgx pool and wraps it for ent.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "backend", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "bills-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	logger.Info("successfully connected to database")
	return &Store{Driver: drv, Pool: pool, logger: logger}, nil
}

// OpenSQLite opens an embedded store. Foreign keys are switched on when the DSN
// does not mention them, since cascading deletes and migrations depend on it.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "sqlite dsn is empty", common.ErrInvalidInput)
	}
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if !strings.Contains(dsn, "foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	logger.Info("connecting to database", "backend", dialect.SQLite)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	// one writer at a time; in-memory databases also live on a single connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &Store{Driver: entsql.OpenDB(dialect.SQLite, db), logger: logger}, nil
}

// Close closes the database connections gracefully
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.logger.Info("closing database connections")
	var errs []error
	if s.Driver != nil {
		if err := s.Driver.Close(); err != nil {
			s.logger.Error("failed to close ent driver", "error", err)
			errs = append(errs, err)
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	s.logger.Info("database connections closed")
	return errors.Join(errs...)
}

// HealthCheck pings the backend to catch DSN issues early.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if s.Pool != nil {
		err = s.Pool.Ping(ctx)
	} else {
		err = s.Driver.DB().PingContext(ctx)
	}
	if err != nil {
		s.logger.Error("database ping failed", "error", err)
		return common.NewAppError("DB_UNAVAILABLE", "database ping failed", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Debug("database ping successful")
	return nil
}
