//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// eventsSchema is the schema integration tests run against. Kept here so the
// store tests exercise exactly the shape production migrations create.
const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id            UUID PRIMARY KEY,
	timestamp     TIMESTAMPTZ NOT NULL,
	obj_id        TEXT NOT NULL DEFAULT '',
	obj_type      TEXT NOT NULL DEFAULT '',
	obj_name      TEXT NOT NULL DEFAULT '',
	action        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	status_reason TEXT NOT NULL DEFAULT '',
	level         INT NOT NULL DEFAULT 20,
	cluster_id    UUID,
	project       TEXT NOT NULL DEFAULT '',
	user_id       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp, id);
CREATE INDEX IF NOT EXISTS idx_events_cluster ON events (cluster_id);
CREATE INDEX IF NOT EXISTS idx_events_project ON events (project);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with an open
// database handle and the events schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("muster_test"),
		tcpostgres.WithUsername("muster"),
		tcpostgres.WithPassword("muster"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, eventsSchema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// The container is managed by the singleton Manager and shared across
	// test suites; Ryuk handles final cleanup.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
