// Package stats defines the season-row and career-summary domain types and
// the derived-stat computations shared by ingestion and the API.
package stats

import (
	"math"
	"strconv"
	"time"
)

// SeasonRow is one player's aggregated per-game statistics for one
// team-season. PlayerName carries the source-reported name with its original
// characters; it is used for identity reconciliation, never normalized in
// storage. Missing numeric source values are held as NaN so the aggregator
// can tell "absent" from a genuine zero; they are written to the store as 0.
type SeasonRow struct {
	PlayerID   int
	PlayerName string
	Season     int
	Team       string
	Position   string
	BirthYear  *int

	Games            int
	GamesStarted     int
	MinutesPerGame   float64
	PointsPerGame    float64
	AssistsPerGame   float64
	ReboundsPerGame  float64
	StealsPerGame    float64
	BlocksPerGame    float64
	FGPercent        float64
	FG3Percent       float64
	FTPercent        float64
	TurnoversPerGame float64
}

// CareerSummary holds per-player career averages derived from season rows.
// Recomputable at any time; never authoritative.
type CareerSummary struct {
	Points   float64 `json:"points"`
	Assists  float64 `json:"assists"`
	Rebounds float64 `json:"rebounds"`
	Steals   float64 `json:"steals"`
	Blocks   float64 `json:"blocks"`
}

// Player is the canonical player record persisted to the players table.
type Player struct {
	ID          int           `json:"id"`
	FullName    string        `json:"full_name"`
	BirthYear   *int          `json:"birth_year,omitempty"`
	Position    string        `json:"position,omitempty"`
	Team        string        `json:"team,omitempty"`
	Summary     CareerSummary `json:"career_summary"`
	LastUpdated time.Time     `json:"last_updated"`
}

// Summarize computes career averages over the given season rows.
// Per stat it filters to values that are present and numeric (NaN excluded),
// averages them, and rounds to 2 decimal places. Zero valid rows for a stat
// yields 0 for that stat, so an empty input returns a zero-filled summary
// and downstream consumers never special-case "no data".
func Summarize(rows []SeasonRow) CareerSummary {
	return CareerSummary{
		Points:   mean(rows, func(r SeasonRow) float64 { return r.PointsPerGame }),
		Assists:  mean(rows, func(r SeasonRow) float64 { return r.AssistsPerGame }),
		Rebounds: mean(rows, func(r SeasonRow) float64 { return r.ReboundsPerGame }),
		Steals:   mean(rows, func(r SeasonRow) float64 { return r.StealsPerGame }),
		Blocks:   mean(rows, func(r SeasonRow) float64 { return r.BlocksPerGame }),
	}
}

func mean(rows []SeasonRow, get func(SeasonRow) float64) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		v := get(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// Round2 rounds to 2 decimal places, the precision stored for all derived
// per-game averages.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseValue normalizes a stat value from various source formats.
//
// The stats endpoints return flat numbers, numeric strings, nulls, and the
// occasional nested object holding the aggregate under a well-known key.
// Returns the scalar float64 value, and ok=false if not extractable.
func ParseValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if v == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		for _, key := range []string{"total", "all", "count", "average"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ParseValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}
