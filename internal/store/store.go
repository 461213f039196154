// Package store persists players and their season rows.
//
// Store is an interface with a Postgres implementation for production and an
// in-memory implementation for tests. All writes are idempotent: replaying
// identical input leaves stored state unchanged, and a player with its
// seasons is committed as one unit or not at all.
package store

import (
	"context"
	"errors"

	"github.com/courtline/courtline-data/internal/stats"
)

// ErrNotFound is returned when a player lookup matches nothing.
var ErrNotFound = errors.New("player not found")

// Counts summarizes store contents for verification.
type Counts struct {
	Players          int
	Seasons          int
	PlayersNoSeasons int
	DuplicateKeys    int
}

// Store is the persistence sink and the read surface of the API.
type Store interface {
	// UpsertPlayer replaces the player record wholesale.
	UpsertPlayer(ctx context.Context, p stats.Player) error

	// ReplaceSeasons rebuilds the player's season history. Never an
	// append: re-running with the same rows yields the same stored state.
	ReplaceSeasons(ctx context.Context, playerID int, rows []stats.SeasonRow) error

	// SavePlayer writes the player and its seasons as one transactional
	// unit; on any failure neither is visible.
	SavePlayer(ctx context.Context, p stats.Player, rows []stats.SeasonRow) error

	GetPlayer(ctx context.Context, id int) (*stats.Player, error)
	SearchPlayer(ctx context.Context, name string) (*stats.Player, error)
	RandomPlayers(ctx context.Context, limit int) ([]stats.Player, error)
	PlayerSeasons(ctx context.Context, playerID int) ([]stats.SeasonRow, error)

	// Verify returns integrity counts: totals, players with no seasons,
	// and residual duplicate (player, season, team) keys.
	Verify(ctx context.Context) (Counts, error)

	Ping(ctx context.Context) error
	Close()
}
