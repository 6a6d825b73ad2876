// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/mercato-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New migrates the schema, then creates and validates a connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	if err := Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Statements maps prepared statement names to SQL. Exported so callers
// holding a bare connection (tests, one-off tools) can prepare the same set.
var Statements = map[string]string{
	"health_check": "SELECT 1",

	// Players collection
	"players_get": "SELECT doc FROM " + config.PlayersTable + " WHERE id = $1",
	"players_list": `SELECT id, doc FROM ` + config.PlayersTable + `
		WHERE ($1::text = '' OR doc->>'position' = $1::text)
		  AND ($2::text = '' OR doc->>'name' ILIKE '%' || $2::text || '%' OR doc->>'team' ILIKE '%' || $2::text || '%')
		ORDER BY CASE WHEN jsonb_typeof(doc->'value') = 'number' THEN (doc->>'value')::numeric END DESC NULLS LAST, id
		LIMIT $3`,
	"players_all":    "SELECT id, doc FROM " + config.PlayersTable + " ORDER BY id",
	"players_count":  "SELECT count(*) FROM " + config.PlayersTable,
	"players_delete": "DELETE FROM " + config.PlayersTable + " WHERE id = ANY($1::text[])",
	"players_clear":  "DELETE FROM " + config.PlayersTable,
	"players_upsert": `INSERT INTO ` + config.PlayersTable + ` (id, doc)
		VALUES ($1, $2::jsonb || jsonb_build_object('lastUpdated', to_jsonb(NOW())))
		ON CONFLICT (id) DO UPDATE SET doc = ` + config.PlayersTable + `.doc || EXCLUDED.doc, updated_at = NOW()`,

	"players_notify": "SELECT pg_notify('" + config.PlayersChangedChannel + "', $1)",

	// Run log
	"runs_insert": "INSERT INTO " + config.ScrapeRunsTable + " (started_at, finished_at, success, summary) VALUES ($1, $2, $3, $4) RETURNING id",
	"runs_trim": `DELETE FROM ` + config.ScrapeRunsTable + ` WHERE id NOT IN (
		SELECT id FROM ` + config.ScrapeRunsTable + ` ORDER BY started_at DESC, id DESC LIMIT $1)`,
	"runs_recent": "SELECT id, started_at, finished_at, success, summary FROM " + config.ScrapeRunsTable + " ORDER BY started_at DESC, id DESC LIMIT $1",
}

// registerPreparedStatements registers all statements the API and ingestion
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
