package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/courtline/courtline-data/internal/nba"
	"github.com/courtline/courtline-data/internal/pace"
	"github.com/courtline/courtline-data/internal/progress"
	"github.com/courtline/courtline-data/internal/stats"
	"github.com/courtline/courtline-data/internal/store"
)

// Fetcher is the remote surface the update loop consumes.
type Fetcher interface {
	ListPlayers(ctx context.Context) ([]nba.RosterPlayer, error)
	CareerStats(ctx context.Context, playerID int) ([]stats.SeasonRow, error)
	GetPlayerInfo(ctx context.Context, playerID int) (*nba.PlayerInfo, error)
}

// Updater runs the incremental fetch-aggregate-persist loop with durable
// progress. Single actor: all fetches and writes are strictly sequential,
// and every suspension is an explicit governed wait.
type Updater struct {
	Fetcher  Fetcher
	Store    store.Store
	Progress *progress.Store
	Governor *pace.Governor
	Logger   *slog.Logger

	// ActiveOnly restricts a pass to players on a current roster.
	ActiveOnly bool

	// Sleep blocks for d or until ctx ends. Tests inject their own.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (u *Updater) sleep(ctx context.Context, d time.Duration) error {
	if u.Sleep != nil {
		return u.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pace asks the governor for clearance before each remote request, sleeping
// through cooldowns and the daily-limit pause. Returns only when a request
// is allowed or the context ends.
func (u *Updater) pace(ctx context.Context, st *progress.State) error {
	for {
		wait, state := u.Governor.Allow()
		switch state {
		case pace.StateOK:
			if wait > 0 {
				if err := u.sleep(ctx, wait); err != nil {
					return err
				}
			}
			return nil

		case pace.StateCooldown:
			u.Logger.Info("request window exhausted, cooling down", "wait", wait.Round(time.Second))
			if err := u.sleep(ctx, wait); err != nil {
				return err
			}

		case pace.StateDailyLimit:
			// Operator-visible coarse status; the process is alive, just
			// waiting out the budget.
			fmt.Println("daily limit reached, resuming at midnight")
			u.Logger.Info("daily request limit reached",
				"daily_count", u.Governor.DailyCount(), "resume_in", wait.Round(time.Minute))
			st.DailyCount = u.Governor.DailyCount()
			if err := u.Progress.Save(*st); err != nil {
				return fmt.Errorf("persist progress at daily limit: %w", err)
			}
			if err := u.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
}

// Run executes one full pass over the roster, resuming from the persisted
// cursor. Per-player failures are logged and skipped; store and progress
// failures abort the pass for the supervisor to handle. On a clean pass the
// cursor resets so the next run starts over.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	var result Result

	st, err := u.Progress.Load()
	if err != nil {
		return result, fmt.Errorf("load progress: %w", err)
	}
	u.Governor.SetDailyCount(st.DailyCount, st.LastUpdateDate)
	u.Logger.Info("incremental update starting",
		"cursor", st.LastProcessedID, "daily_count", st.DailyCount)

	if err := u.pace(ctx, &st); err != nil {
		return result, err
	}
	roster, err := u.Fetcher.ListPlayers(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch roster: %w", err)
	}

	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	remaining := make([]nba.RosterPlayer, 0, len(roster))
	for _, p := range roster {
		if u.ActiveOnly && !p.Active {
			continue
		}
		if p.ID <= st.LastProcessedID {
			continue
		}
		remaining = append(remaining, p)
	}
	u.Logger.Info("roster selected", "total", len(roster), "remaining", len(remaining))

	for _, player := range remaining {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.PlayersProcessed++

		written, err := u.updateOne(ctx, &st, player)
		st.DailyCount = u.Governor.DailyCount()
		switch {
		case err == nil:
			result.PlayersUpdated++
			result.SeasonsWritten += written
			// Durable cursor advance only after the whole unit committed.
			st.LastProcessedID = player.ID
			if err := u.Progress.Save(st); err != nil {
				return result, fmt.Errorf("persist progress: %w", err)
			}
		case ctx.Err() != nil:
			return result, ctx.Err()
		case isItemError(err):
			// Skip this player and move on; the cursor stays at the last
			// success so a crash re-attempts nothing that already landed.
			result.PlayersSkipped++
			result.AddErrorf("player %d (%s): %v", player.ID, player.FullName, err)
			u.Logger.Warn("skipping player", "id", player.ID, "name", player.FullName, "error", err)
			if err := u.Progress.Save(st); err != nil {
				return result, fmt.Errorf("persist progress: %w", err)
			}
		default:
			// Store-level failure: abort the pass, roll up to the supervisor.
			return result, fmt.Errorf("player %d: %w", player.ID, err)
		}

		if result.PlayersProcessed%50 == 0 {
			u.Logger.Info("update progress", "summary", result.Summary())
		}
	}

	// Pass complete: reset the cursor, keep today's budget.
	st.LastProcessedID = 0
	if err := u.Progress.Save(st); err != nil {
		return result, fmt.Errorf("persist progress: %w", err)
	}

	u.Logger.Info("incremental update complete", "summary", result.Summary())
	return result, nil
}

// updateOne fetches, aggregates, and persists a single player. The returned
// error is an item error (skippable) or a store error (fatal to the pass).
func (u *Updater) updateOne(ctx context.Context, st *progress.State, player nba.RosterPlayer) (int, error) {
	if err := u.pace(ctx, st); err != nil {
		return 0, err
	}
	seasons, err := u.Fetcher.CareerStats(ctx, player.ID)
	if err != nil {
		return 0, err
	}

	if err := u.pace(ctx, st); err != nil {
		return 0, err
	}
	info, err := u.Fetcher.GetPlayerInfo(ctx, player.ID)
	if err != nil {
		return 0, err
	}

	name := info.FullName
	if name == "" {
		name = player.FullName
	}
	if name == "" {
		return 0, &itemError{fmt.Errorf("no name for player %d", player.ID)}
	}

	record := stats.Player{
		ID:        player.ID,
		FullName:  name,
		BirthYear: info.BirthYear,
		Position:  info.Position,
		Team:      info.Team,
		Summary:   stats.Summarize(seasons),
	}
	if record.Team == "" {
		record.Team = player.Team
	}

	if err := u.Store.SavePlayer(ctx, record, seasons); err != nil {
		return 0, err
	}
	return len(seasons), nil
}

// itemError marks a failure as local to one player.
type itemError struct{ err error }

func (e *itemError) Error() string { return e.err.Error() }
func (e *itemError) Unwrap() error { return e.err }

// isItemError separates skip-and-continue failures from run-aborting ones.
// Exhausted fetch retries and missing players hurt one item; anything
// touching shared state propagates.
func isItemError(err error) bool {
	var ie *itemError
	if errors.As(err, &ie) {
		return true
	}
	var fe *nba.FetchError
	return errors.As(err, &fe)
}
