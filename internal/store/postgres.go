package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/courtline/courtline-data/internal/config"
	"github.com/courtline/courtline-data/internal/db"
	"github.com/courtline/courtline-data/internal/stats"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const playerUpsertSQL = `
	INSERT INTO ` + config.PlayersTable + ` (
		id, full_name, birth_year, position, team, career_summary, last_updated
	) VALUES ($1,$2,$3,$4,$5,$6,NOW())
	ON CONFLICT (id) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		birth_year = EXCLUDED.birth_year,
		position = EXCLUDED.position,
		team = EXCLUDED.team,
		career_summary = EXCLUDED.career_summary,
		last_updated = NOW()`

const seasonUpsertSQL = `
	INSERT INTO ` + config.SeasonsTable + ` (
		player_id, season, team, games, games_started,
		minutes_per_game, pts_per_game, ast_per_game, reb_per_game,
		stl_per_game, blk_per_game, fg_percent, fg3_percent, ft_percent,
		turnover_per_game
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (player_id, season, team) DO UPDATE SET
		games = EXCLUDED.games,
		games_started = EXCLUDED.games_started,
		minutes_per_game = EXCLUDED.minutes_per_game,
		pts_per_game = EXCLUDED.pts_per_game,
		ast_per_game = EXCLUDED.ast_per_game,
		reb_per_game = EXCLUDED.reb_per_game,
		stl_per_game = EXCLUDED.stl_per_game,
		blk_per_game = EXCLUDED.blk_per_game,
		fg_percent = EXCLUDED.fg_percent,
		fg3_percent = EXCLUDED.fg3_percent,
		ft_percent = EXCLUDED.ft_percent,
		turnover_per_game = EXCLUDED.turnover_per_game`

func (s *Postgres) UpsertPlayer(ctx context.Context, p stats.Player) error {
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return fmt.Errorf("marshal career summary: %w", err)
	}
	_, err = s.pool.Exec(ctx, playerUpsertSQL,
		p.ID, p.FullName, p.BirthYear, nilEmpty(p.Position), nilEmpty(p.Team), summary)
	if err != nil {
		return fmt.Errorf("upsert player %d: %w", p.ID, err)
	}
	return nil
}

func (s *Postgres) ReplaceSeasons(ctx context.Context, playerID int, rows []stats.SeasonRow) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return replaceSeasonsTx(ctx, tx, playerID, rows)
	})
}

// SavePlayer commits the player record and its rebuilt season history as one
// unit. On any failure the transaction rolls back and nothing is visible.
func (s *Postgres) SavePlayer(ctx context.Context, p stats.Player, rows []stats.SeasonRow) error {
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return fmt.Errorf("marshal career summary: %w", err)
	}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, playerUpsertSQL,
			p.ID, p.FullName, p.BirthYear, nilEmpty(p.Position), nilEmpty(p.Team), summary); err != nil {
			return fmt.Errorf("upsert player %d: %w", p.ID, err)
		}
		return replaceSeasonsTx(ctx, tx, p.ID, rows)
	})
	if err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	return nil
}

func replaceSeasonsTx(ctx context.Context, tx pgx.Tx, playerID int, rows []stats.SeasonRow) error {
	if _, err := tx.Exec(ctx,
		"DELETE FROM "+config.SeasonsTable+" WHERE player_id = $1", playerID); err != nil {
		return fmt.Errorf("clear seasons for %d: %w", playerID, err)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(seasonUpsertSQL,
			playerID, r.Season, r.Team, r.Games, r.GamesStarted,
			zeroNaN(r.MinutesPerGame), zeroNaN(r.PointsPerGame), zeroNaN(r.AssistsPerGame),
			zeroNaN(r.ReboundsPerGame), zeroNaN(r.StealsPerGame), zeroNaN(r.BlocksPerGame),
			zeroNaN(r.FGPercent), zeroNaN(r.FG3Percent), zeroNaN(r.FTPercent),
			zeroNaN(r.TurnoversPerGame))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert seasons for %d: %w", playerID, err)
	}
	return nil
}

func (s *Postgres) GetPlayer(ctx context.Context, id int) (*stats.Player, error) {
	return s.scanPlayer(s.pool.QueryRow(ctx, "get_player", id))
}

func (s *Postgres) SearchPlayer(ctx context.Context, name string) (*stats.Player, error) {
	return s.scanPlayer(s.pool.QueryRow(ctx, "search_player", name))
}

func (s *Postgres) RandomPlayers(ctx context.Context, limit int) ([]stats.Player, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, "random_players", limit)
	if err != nil {
		return nil, fmt.Errorf("random players: %w", err)
	}
	defer rows.Close()

	var out []stats.Player
	for rows.Next() {
		p, err := s.scanPlayerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Postgres) PlayerSeasons(ctx context.Context, playerID int) ([]stats.SeasonRow, error) {
	rows, err := s.pool.Query(ctx, "player_seasons", playerID)
	if err != nil {
		return nil, fmt.Errorf("player seasons %d: %w", playerID, err)
	}
	defer rows.Close()

	var out []stats.SeasonRow
	for rows.Next() {
		var r stats.SeasonRow
		if err := rows.Scan(
			&r.PlayerID, &r.Season, &r.Team, &r.Games, &r.GamesStarted,
			&r.MinutesPerGame, &r.PointsPerGame, &r.AssistsPerGame, &r.ReboundsPerGame,
			&r.StealsPerGame, &r.BlocksPerGame, &r.FGPercent, &r.FG3Percent, &r.FTPercent,
			&r.TurnoversPerGame,
		); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) Verify(ctx context.Context) (Counts, error) {
	var c Counts
	steps := []struct {
		stmt string
		dst  *int
	}{
		{"count_players", &c.Players},
		{"count_seasons", &c.Seasons},
		{"count_players_no_seasons", &c.PlayersNoSeasons},
		{"count_duplicate_keys", &c.DuplicateKeys},
	}
	for _, step := range steps {
		if err := s.pool.QueryRow(ctx, step.stmt).Scan(step.dst); err != nil {
			return Counts{}, fmt.Errorf("%s: %w", step.stmt, err)
		}
	}
	return c, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

func (s *Postgres) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanPlayer(row pgx.Row) (*stats.Player, error) {
	return s.scanPlayerRow(row)
}

func (s *Postgres) scanPlayerRow(row rowScanner) (*stats.Player, error) {
	var p stats.Player
	var position, team *string
	var summary []byte

	err := row.Scan(&p.ID, &p.FullName, &p.BirthYear, &position, &team, &summary, &p.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan player: %w", err)
	}
	if position != nil {
		p.Position = *position
	}
	if team != nil {
		p.Team = *team
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &p.Summary); err != nil {
			return nil, fmt.Errorf("parse career summary: %w", err)
		}
	}
	return &p, nil
}

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// zeroNaN maps the in-flight missing-value marker to the stored default.
func zeroNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
