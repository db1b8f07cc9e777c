//go:build integration

// Package dbtest starts a throwaway PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relativitydevhub/authservice/internal/database"
)

// TestDB manages a PostgreSQL testcontainer with migrations applied
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	DB         *database.DB
}

// Setup creates the container, connects a pool and runs the embedded migrations
func Setup(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("auth_service"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{Container: container, ConnString: connStr, DB: db}, nil
}

// Teardown closes the pool and stops the container
func (t *TestDB) Teardown(ctx context.Context) error {
	if t.DB != nil {
		t.DB.Pool.Close()
	}
	if t.Container != nil {
		return t.Container.Terminate(ctx)
	}
	return nil
}

// Truncate empties every table between tests
func (t *TestDB) Truncate(ctx context.Context) error {
	_, err := t.DB.Pool.Exec(ctx, `TRUNCATE TABLE revoked_tokens, users CASCADE`)
	return err
}
