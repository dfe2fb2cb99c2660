package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"upgrade-service/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// Options tune the connection pool and the connect retry budget.
type Options struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// NewStore connects to Postgres, retrying with exponential backoff until
// opts.ConnectTimeout elapses.
func NewStore(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	logger := util.GetLogger()

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 15 * time.Second
	policy.MaxElapsedTime = opts.ConnectTimeout
	if policy.MaxElapsedTime == 0 {
		policy.MaxElapsedTime = 2 * time.Minute
	}

	var db *sqlx.DB
	err := backoff.RetryNotify(
		func() error {
			var err error
			db, err = sqlx.ConnectContext(ctx, "postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			return nil
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying",
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	util.GetLogger().Info("Database migrations applied")
	return nil
}
