// Package snapshot loads bulk per-game statistics from downloaded CSV
// snapshots. Column presence is validated up front: a snapshot missing any
// required column fails fast before a single row is parsed.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/courtline/courtline-data/internal/stats"
)

// requiredColumns are the identity and per-game columns every supported
// snapshot vendor ships. Naming is fixed per vendor.
var requiredColumns = []string{
	"player_id", "player", "season", "tm",
	"g", "mp_per_game", "pts_per_game", "ast_per_game", "trb_per_game",
}

// optionalColumns are parsed when present and defaulted otherwise.
var optionalColumns = []string{
	"lg", "pos", "birth_year", "gs",
	"stl_per_game", "blk_per_game",
	"fg_percent", "x3p_percent", "ft_percent", "tov_per_game",
}

// Options controls snapshot loading.
type Options struct {
	// League filters rows to one league code (e.g. "NBA") when the snapshot
	// carries an "lg" column. Empty keeps everything.
	League string
}

// Load reads and parses a snapshot file.
func Load(path string, opts Options) ([]stats.SeasonRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	rows, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return rows, nil
}

// Parse reads snapshot CSV from r. The first record must be the header.
func Parse(r io.Reader, opts Options) ([]stats.SeasonRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("snapshot missing required columns: %s", strings.Join(missing, ", "))
	}

	var out []stats.SeasonRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record at line %d: %w", line+1, err)
		}
		line++

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if opts.League != "" {
			if lg := get("lg"); lg != "" && lg != opts.League {
				continue
			}
		}

		playerID, err := strconv.Atoi(get("player_id"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad player_id %q", line, get("player_id"))
		}
		season, err := parseSeason(get("season"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad season %q", line, get("season"))
		}

		row := stats.SeasonRow{
			PlayerID:   playerID,
			PlayerName: get("player"),
			Season:     season,
			Team:       get("tm"),
			Position:   get("pos"),

			Games:            intOr(get("g"), 0),
			GamesStarted:     intOr(get("gs"), 0),
			MinutesPerGame:   floatOr(get("mp_per_game")),
			PointsPerGame:    floatOr(get("pts_per_game")),
			AssistsPerGame:   floatOr(get("ast_per_game")),
			ReboundsPerGame:  floatOr(get("trb_per_game")),
			StealsPerGame:    floatOr(get("stl_per_game")),
			BlocksPerGame:    floatOr(get("blk_per_game")),
			FGPercent:        floatOr(get("fg_percent")),
			FG3Percent:       floatOr(get("x3p_percent")),
			FTPercent:        floatOr(get("ft_percent")),
			TurnoversPerGame: floatOr(get("tov_per_game")),
		}
		if by := get("birth_year"); by != "" {
			if year, err := strconv.Atoi(strings.TrimSuffix(by, ".0")); err == nil {
				row.BirthYear = &year
			}
		}

		out = append(out, row)
	}

	return out, nil
}

// parseSeason accepts plain years ("2024") and float-formatted years some
// snapshot exports produce ("2024.0").
func parseSeason(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func intOr(s string, fallback int) int {
	if s == "" || strings.EqualFold(s, "na") {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return fallback
}

// floatOr maps empty and non-numeric cells to NaN so the aggregator can
// exclude them; they become 0 at the persistence boundary.
func floatOr(s string) float64 {
	if s == "" || strings.EqualFold(s, "na") {
		return math.NaN()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return math.NaN()
}
