// Package db provides a pgxpool-based connection pool with prepared
// statement registration and schema bootstrap.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtline/courtline-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
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

// EnsureSchema creates the players and seasons tables when absent. The
// unique index on (player_id, season, team) is the canonical season key;
// every write path upserts against it.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS ` + config.PlayersTable + ` (
			id             INTEGER PRIMARY KEY,
			full_name      TEXT NOT NULL,
			birth_year     INTEGER,
			position       TEXT,
			team           TEXT,
			career_summary JSONB NOT NULL DEFAULT '{}',
			last_updated   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + config.SeasonsTable + ` (
			id                 BIGSERIAL PRIMARY KEY,
			player_id          INTEGER NOT NULL REFERENCES ` + config.PlayersTable + `(id) ON DELETE CASCADE,
			season             INTEGER NOT NULL,
			team               TEXT NOT NULL DEFAULT '',
			games              INTEGER NOT NULL DEFAULT 0,
			games_started      INTEGER NOT NULL DEFAULT 0,
			minutes_per_game   REAL NOT NULL DEFAULT 0,
			pts_per_game       REAL NOT NULL DEFAULT 0,
			ast_per_game       REAL NOT NULL DEFAULT 0,
			reb_per_game       REAL NOT NULL DEFAULT 0,
			stl_per_game       REAL NOT NULL DEFAULT 0,
			blk_per_game       REAL NOT NULL DEFAULT 0,
			fg_percent         REAL NOT NULL DEFAULT 0,
			fg3_percent        REAL NOT NULL DEFAULT 0,
			ft_percent         REAL NOT NULL DEFAULT 0,
			turnover_per_game  REAL NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_seasons_player_season_team
			ON ` + config.SeasonsTable + ` (player_id, season, team)`,
		`CREATE INDEX IF NOT EXISTS idx_players_full_name_lower
			ON ` + config.PlayersTable + ` (LOWER(full_name))`,
	}

	for _, stmt := range ddl {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// registerPreparedStatements registers the statements the API and ingestion
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// API: players
		"get_player": `SELECT id, full_name, birth_year, position, team, career_summary, last_updated
			FROM ` + config.PlayersTable + ` WHERE id = $1`,
		"search_player": `SELECT id, full_name, birth_year, position, team, career_summary, last_updated
			FROM ` + config.PlayersTable + ` WHERE LOWER(full_name) = LOWER($1) LIMIT 1`,
		"random_players": `SELECT id, full_name, birth_year, position, team, career_summary, last_updated
			FROM ` + config.PlayersTable + ` ORDER BY RANDOM() LIMIT $1`,
		"player_seasons": `SELECT player_id, season, team, games, games_started,
				minutes_per_game, pts_per_game, ast_per_game, reb_per_game,
				stl_per_game, blk_per_game, fg_percent, fg3_percent, ft_percent,
				turnover_per_game
			FROM ` + config.SeasonsTable + ` WHERE player_id = $1 ORDER BY season`,

		// Verification
		"count_players": "SELECT COUNT(*) FROM " + config.PlayersTable,
		"count_seasons": "SELECT COUNT(*) FROM " + config.SeasonsTable,
		"count_players_no_seasons": `SELECT COUNT(*) FROM ` + config.PlayersTable + ` p
			WHERE NOT EXISTS (SELECT 1 FROM ` + config.SeasonsTable + ` s WHERE s.player_id = p.id)`,
		"count_duplicate_keys": `SELECT COUNT(*) FROM (
			SELECT player_id, season, team FROM ` + config.SeasonsTable + `
			GROUP BY player_id, season, team HAVING COUNT(*) > 1) d`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
