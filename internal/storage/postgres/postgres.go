// Package postgres stores finished battles in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idlequest/internal/config"
)

// SchemaVersion is the migration version this package's queries expect.
const SchemaVersion = 1

// ErrSchemaOutdated is returned by RequireSchema when the migrations in
// ./migrations have not been applied, or a migration failed halfway.
var ErrSchemaOutdated = errors.New("database schema is not at the expected version")

// Pool is a pgx connection pool tagged with the application name.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the configured database.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a Pool that answered a ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "idlequest"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the database within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// RequireSchema checks the migration table golang-migrate maintains.
//
// Postcondition: returns an error matching ErrSchemaOutdated when the schema
// is missing, dirty, or at a version other than SchemaVersion.
func (p *Pool) RequireSchema(ctx context.Context) error {
	var (
		version int64
		dirty   bool
	)
	err := p.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("no migrations applied: %w", ErrSchemaOutdated)
	case err != nil:
		if isUndefinedTable(err) {
			return fmt.Errorf("no migration table: %w", ErrSchemaOutdated)
		}
		return fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("migration %d is dirty: %w", version, ErrSchemaOutdated)
	case version != SchemaVersion:
		return fmt.Errorf("schema at version %d, want %d: %w", version, SchemaVersion, ErrSchemaOutdated)
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
