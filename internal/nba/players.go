package nba

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/courtline/courtline-data/internal/stats"
)

// RosterPlayer is one entry of the full player roster.
type RosterPlayer struct {
	ID       int
	FullName string
	Team     string
	Active   bool
}

// PlayerInfo carries the biographical fields the info endpoint exposes.
type PlayerInfo struct {
	FullName  string
	Team      string
	Position  string
	BirthYear *int
}

// ListPlayers returns the full roster of known players with an active flag,
// ordered by player ID.
func (c *Client) ListPlayers(ctx context.Context) ([]RosterPlayer, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("IsOnlyCurrentSeason", "0")

	resp, err := c.getRetry(ctx, "commonallplayers", params)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	set, err := findSet(resp, "CommonAllPlayers")
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	players := make([]RosterPlayer, 0, len(set.rows))
	for _, row := range set.rows {
		id, ok := stats.ParseValue(set.cell(row, "PERSON_ID"))
		if !ok {
			continue
		}
		rosterStatus, _ := stats.ParseValue(set.cell(row, "ROSTERSTATUS"))
		players = append(players, RosterPlayer{
			ID:       int(id),
			FullName: cellString(set.cell(row, "DISPLAY_FIRST_LAST")),
			Team:     cellString(set.cell(row, "TEAM_ABBREVIATION")),
			Active:   rosterStatus == 1,
		})
	}
	return players, nil
}

// CareerStats returns the player's regular-season per-game rows, one per
// team-season, oldest first.
func (c *Client) CareerStats(ctx context.Context, playerID int) ([]stats.SeasonRow, error) {
	params := url.Values{}
	params.Set("PlayerID", strconv.Itoa(playerID))
	params.Set("PerMode", "PerGame")

	resp, err := c.getRetry(ctx, "playercareerstats", params)
	if err != nil {
		return nil, fmt.Errorf("career stats %d: %w", playerID, err)
	}
	set, err := findSet(resp, "SeasonTotalsRegularSeason")
	if err != nil {
		return nil, fmt.Errorf("career stats %d: %w", playerID, err)
	}

	rows := make([]stats.SeasonRow, 0, len(set.rows))
	for _, row := range set.rows {
		season, err := parseSeasonLabel(cellString(set.cell(row, "SEASON_ID")))
		if err != nil {
			// Malformed season labels taint the whole history; the item is
			// skipped rather than stored with a bogus key.
			return nil, &FetchError{Kind: KindNotFound, Op: "playercareerstats",
				Err: fmt.Errorf("player %d: %w", playerID, err)}
		}

		rows = append(rows, stats.SeasonRow{
			PlayerID:         playerID,
			Season:           season,
			Team:             cellString(set.cell(row, "TEAM_ABBREVIATION")),
			Games:            cellInt(set, row, "GP"),
			GamesStarted:     cellInt(set, row, "GS"),
			MinutesPerGame:   cellFloat(set, row, "MIN"),
			PointsPerGame:    cellFloat(set, row, "PTS"),
			AssistsPerGame:   cellFloat(set, row, "AST"),
			ReboundsPerGame:  cellFloat(set, row, "REB"),
			StealsPerGame:    cellFloat(set, row, "STL"),
			BlocksPerGame:    cellFloat(set, row, "BLK"),
			FGPercent:        cellFloat(set, row, "FG_PCT"),
			FG3Percent:       cellFloat(set, row, "FG3_PCT"),
			FTPercent:        cellFloat(set, row, "FT_PCT"),
			TurnoversPerGame: cellFloat(set, row, "TOV"),
		})
	}
	return rows, nil
}

// GetPlayerInfo returns team, position, and birth year for one player.
func (c *Client) GetPlayerInfo(ctx context.Context, playerID int) (*PlayerInfo, error) {
	params := url.Values{}
	params.Set("PlayerID", strconv.Itoa(playerID))

	resp, err := c.getRetry(ctx, "commonplayerinfo", params)
	if err != nil {
		return nil, fmt.Errorf("player info %d: %w", playerID, err)
	}
	set, err := findSet(resp, "CommonPlayerInfo")
	if err != nil {
		return nil, fmt.Errorf("player info %d: %w", playerID, err)
	}
	if len(set.rows) == 0 {
		return nil, &FetchError{Kind: KindNotFound, Op: "commonplayerinfo",
			Err: fmt.Errorf("player %d: empty result set", playerID)}
	}

	row := set.rows[0]
	info := &PlayerInfo{
		FullName: cellString(set.cell(row, "DISPLAY_FIRST_LAST")),
		Team:     cellString(set.cell(row, "TEAM_ABBREVIATION")),
		Position: cellString(set.cell(row, "POSITION")),
	}
	if birth := cellString(set.cell(row, "BIRTHDATE")); len(birth) >= 4 {
		if year, err := strconv.Atoi(birth[:4]); err == nil {
			info.BirthYear = &year
		}
	}
	return info, nil
}

// parseSeasonLabel converts a "2023-24" label to the season's ending
// calendar year (2024), matching the snapshot convention.
func parseSeasonLabel(label string) (int, error) {
	start, _, found := strings.Cut(label, "-")
	year, err := strconv.Atoi(start)
	if err != nil {
		return 0, fmt.Errorf("bad season label %q", label)
	}
	if found {
		return year + 1, nil
	}
	return year, nil
}

func cellString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func cellInt(set *resultSet, row []interface{}, column string) int {
	f, ok := stats.ParseValue(set.cell(row, column))
	if !ok {
		return 0
	}
	return int(f)
}

// cellFloat keeps the missing-value convention: absent or non-numeric cells
// become NaN so Summarize can exclude them.
func cellFloat(set *resultSet, row []interface{}, column string) float64 {
	f, ok := stats.ParseValue(set.cell(row, column))
	if !ok {
		return math.NaN()
	}
	return f
}
