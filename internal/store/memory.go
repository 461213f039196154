package store

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/courtline/courtline-data/internal/stats"
)

// Memory is the in-memory Store used by tests and local experiments.
type Memory struct {
	mu      sync.RWMutex
	players map[int]stats.Player
	seasons map[int][]stats.SeasonRow

	// FailSaves makes the next SavePlayer calls fail, for exercising
	// store-error paths.
	FailSaves int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		players: map[int]stats.Player{},
		seasons: map[int][]stats.SeasonRow{},
	}
}

func (m *Memory) UpsertPlayer(ctx context.Context, p stats.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
	return nil
}

func (m *Memory) ReplaceSeasons(ctx context.Context, playerID int, rows []stats.SeasonRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceSeasonsLocked(playerID, rows)
	return nil
}

func (m *Memory) replaceSeasonsLocked(playerID int, rows []stats.SeasonRow) {
	copied := make([]stats.SeasonRow, len(rows))
	copy(copied, rows)
	sort.Slice(copied, func(i, j int) bool { return copied[i].Season < copied[j].Season })
	m.seasons[playerID] = copied
}

func (m *Memory) SavePlayer(ctx context.Context, p stats.Player, rows []stats.SeasonRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves > 0 {
		m.FailSaves--
		return context.DeadlineExceeded
	}
	m.players[p.ID] = p
	m.replaceSeasonsLocked(p.ID, rows)
	return nil
}

func (m *Memory) GetPlayer(ctx context.Context, id int) (*stats.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SearchPlayer(ctx context.Context, name string) (*stats.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if strings.EqualFold(p.FullName, name) {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) RandomPlayers(ctx context.Context, limit int) ([]stats.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]stats.Player, 0, len(m.players))
	for _, p := range m.players {
		all = append(all, p)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) PlayerSeasons(ctx context.Context, playerID int) ([]stats.SeasonRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.seasons[playerID]
	out := make([]stats.SeasonRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *Memory) Verify(ctx context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var c Counts
	c.Players = len(m.players)
	type key struct {
		id, season int
		team       string
	}
	seen := map[key]int{}
	for id, rows := range m.seasons {
		c.Seasons += len(rows)
		for _, r := range rows {
			seen[key{id, r.Season, r.Team}]++
		}
	}
	for id := range m.players {
		if len(m.seasons[id]) == 0 {
			c.PlayersNoSeasons++
		}
	}
	for _, n := range seen {
		if n > 1 {
			c.DuplicateKeys++
		}
	}
	return c, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {}
