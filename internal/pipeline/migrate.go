package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/courtline/courtline-data/internal/reconcile"
	"github.com/courtline/courtline-data/internal/stats"
	"github.com/courtline/courtline-data/internal/store"
)

// Migrate rebuilds the store from snapshot season rows: reconcile duplicate
// identities, group rows per player, derive the career summary, and save
// each player with its full season history as one unit. Re-running with the
// same snapshot leaves the store unchanged. Per-player failures are
// collected, never aborting the batch.
func Migrate(ctx context.Context, st store.Store, rows []stats.SeasonRow, opts reconcile.Options, logger *slog.Logger) Result {
	var result Result

	logger.Info("reconciling identities", "rows", len(rows))
	merged := reconcile.Reconcile(rows, opts)
	logger.Info("reconciliation done", "rows", len(merged))

	byPlayer := map[int][]stats.SeasonRow{}
	for _, r := range merged {
		byPlayer[r.PlayerID] = append(byPlayer[r.PlayerID], r)
	}

	ids := make([]int, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.AddErrorf("interrupted: %v", err)
			return result
		}
		result.PlayersProcessed++

		seasons := byPlayer[id]
		sort.Slice(seasons, func(i, j int) bool { return seasons[i].Season < seasons[j].Season })
		latest := seasons[len(seasons)-1]
		if latest.PlayerName == "" {
			result.PlayersSkipped++
			result.AddErrorf("player %d: empty name in snapshot", id)
			continue
		}

		record := stats.Player{
			ID:        id,
			FullName:  latest.PlayerName,
			BirthYear: latest.BirthYear,
			Position:  latest.Position,
			Team:      latest.Team,
			Summary:   stats.Summarize(seasons),
		}

		if err := st.SavePlayer(ctx, record, seasons); err != nil {
			result.PlayersSkipped++
			result.AddErrorf("save player %d (%s): %v", id, record.FullName, err)
			logger.Error("save failed", "id", id, "name", record.FullName, "error", err)
			continue
		}
		result.PlayersUpdated++
		result.SeasonsWritten += len(seasons)

		if result.PlayersProcessed%500 == 0 {
			logger.Info("migration progress", "summary", result.Summary())
		}
	}

	logger.Info("migration complete", "summary", result.Summary())
	return result
}

// Verify reports store integrity counts and, optionally, one player's
// career line for spot checking. Read-only.
func Verify(ctx context.Context, st store.Store, playerName string, logger *slog.Logger) error {
	counts, err := st.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify store: %w", err)
	}
	logger.Info("store contents",
		"players", counts.Players,
		"seasons", counts.Seasons,
		"players_without_seasons", counts.PlayersNoSeasons,
		"duplicate_season_keys", counts.DuplicateKeys)

	if counts.DuplicateKeys > 0 {
		logger.Warn("duplicate (player, season, team) keys present", "count", counts.DuplicateKeys)
	}

	if playerName != "" {
		p, err := st.SearchPlayer(ctx, playerName)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", playerName, err)
		}
		seasons, err := st.PlayerSeasons(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("seasons for %q: %w", playerName, err)
		}
		logger.Info("player", "id", p.ID, "name", p.FullName,
			"team", p.Team, "position", p.Position, "summary", p.Summary)
		for _, s := range seasons {
			logger.Info("season", "season", s.Season, "team", s.Team,
				"games", s.Games, "ppg", s.PointsPerGame,
				"apg", s.AssistsPerGame, "rpg", s.ReboundsPerGame)
		}
	}
	return nil
}
