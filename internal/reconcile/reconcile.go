// Package reconcile merges season rows for players that appear under more
// than one source identifier.
//
// Statistics vendors occasionally assign a new numeric ID to the same human
// player partway through their career (roster re-registration, data vendor
// changes). Reconcile detects those cases by name within a recent season
// window, picks the most recently used ID as canonical, and splices the two
// histories together at a season boundary. Pure functions, no I/O.
package reconcile

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/courtline/courtline-data/internal/stats"
)

// Mapping redirects a non-canonical source ID to its canonical ID.
// Rows under the old ID strictly before SplitSeason are kept and re-stamped
// with CanonicalID; rows under CanonicalID at or after SplitSeason are kept
// as-is; everything else for the pair is dropped.
type Mapping struct {
	CanonicalID int
	SplitSeason int
}

// Options tunes detection and merging.
type Options struct {
	// CurrentSeasonCutoff is the first season of the "current" window. A
	// name maps to a merge candidate only if one of its IDs appears at or
	// after this year; it is also the default split point.
	CurrentSeasonCutoff int

	// Overrides pins known non-canonical IDs to a mapping, bypassing the
	// name heuristic. Curated data supplied by the caller; names with
	// diacritics defeat plain string matching often enough to need it.
	Overrides map[int]Mapping

	Logger *slog.Logger
}

// DefaultOverrides is the curated correction table for IDs the heuristic is
// known to miss.
var DefaultOverrides = map[int]Mapping{
	// LeBron James: re-registered under a second ID from the 2024 season.
	3463: {CanonicalID: 3462, SplitSeason: 2024},
}

// Candidate describes one detected duplicate identity.
type Candidate struct {
	Name    string
	IDs     []int
	Seasons map[int][2]int // id -> [minSeason, maxSeason]
}

// Reconcile detects duplicate identities, builds the ID mapping, applies it,
// and deduplicates residual (player, season, team) collisions. The returned
// rows carry exactly one identifier per detected player, with no season lost
// or duplicated across a merge.
func Reconcile(rows []stats.SeasonRow, opts Options) []stats.SeasonRow {
	if opts.CurrentSeasonCutoff == 0 {
		opts.CurrentSeasonCutoff = 2024
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	candidates := DetectDuplicates(rows, opts.CurrentSeasonCutoff)
	mappings := BuildMappings(candidates, opts.CurrentSeasonCutoff)
	for id, m := range opts.Overrides {
		mappings[id] = m
	}

	for _, c := range candidates {
		logger.Info("duplicate identity detected", "player", c.Name, "ids", c.IDs)
	}

	merged := Apply(rows, mappings)
	return Dedupe(merged)
}

// DetectDuplicates groups rows by folded player name and returns names that
// map to more than one source ID with at least one ID active in the current
// season window. Name folding (diacritics, case) is used for detection only;
// stored rows keep their original characters.
func DetectDuplicates(rows []stats.SeasonRow, cutoff int) []Candidate {
	type idSpan struct {
		min, max int
	}
	byName := map[string]map[int]*idSpan{}
	display := map[string]string{}

	for _, r := range rows {
		key := foldName(r.PlayerName)
		if key == "" {
			continue
		}
		if byName[key] == nil {
			byName[key] = map[int]*idSpan{}
			display[key] = r.PlayerName
		}
		span := byName[key][r.PlayerID]
		if span == nil {
			byName[key][r.PlayerID] = &idSpan{min: r.Season, max: r.Season}
			continue
		}
		if r.Season < span.min {
			span.min = r.Season
		}
		if r.Season > span.max {
			span.max = r.Season
		}
	}

	var out []Candidate
	for key, ids := range byName {
		if len(ids) < 2 {
			continue
		}
		active := false
		for _, span := range ids {
			if span.max >= cutoff {
				active = true
				break
			}
		}
		if !active {
			continue
		}

		c := Candidate{Name: display[key], Seasons: map[int][2]int{}}
		for id, span := range ids {
			c.IDs = append(c.IDs, id)
			c.Seasons[id] = [2]int{span.min, span.max}
		}
		sort.Ints(c.IDs)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BuildMappings chooses the ID with the most recent season as canonical for
// each candidate and maps every other ID to it, splitting at the cutoff year.
func BuildMappings(candidates []Candidate, cutoff int) map[int]Mapping {
	mappings := map[int]Mapping{}
	for _, c := range candidates {
		canonical := 0
		latest := -1
		for _, id := range c.IDs {
			if max := c.Seasons[id][1]; max > latest || (max == latest && id > canonical) {
				latest = max
				canonical = id
			}
		}
		for _, id := range c.IDs {
			if id != canonical {
				mappings[id] = Mapping{CanonicalID: canonical, SplitSeason: cutoff}
			}
		}
	}
	return mappings
}

// Apply rewrites rows according to the mappings. For each mapped pair it
// retains old-ID rows strictly before the split point re-stamped with the
// canonical ID, and canonical-ID rows at or after the split point unchanged.
// Rows for unmapped IDs pass through untouched.
func Apply(rows []stats.SeasonRow, mappings map[int]Mapping) []stats.SeasonRow {
	// Canonical IDs that participate in a merge lose their pre-split rows.
	splitByCanonical := map[int]int{}
	for _, m := range mappings {
		splitByCanonical[m.CanonicalID] = m.SplitSeason
	}

	out := make([]stats.SeasonRow, 0, len(rows))
	for _, r := range rows {
		if m, ok := mappings[r.PlayerID]; ok {
			if r.Season < m.SplitSeason {
				r.PlayerID = m.CanonicalID
				out = append(out, r)
			}
			continue
		}
		if split, ok := splitByCanonical[r.PlayerID]; ok && r.Season < split {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].Season < out[j].Season
	})
	return out
}

// Dedupe collapses residual collisions on the canonical (player, season,
// team) key, keeping the row with the highest minutes played. Sources list a
// player twice for one season under trade and roster-move artifacts; minutes
// is the proxy for the real season line.
func Dedupe(rows []stats.SeasonRow) []stats.SeasonRow {
	type key struct {
		id     int
		season int
		team   string
	}
	best := map[key]stats.SeasonRow{}
	order := make([]key, 0, len(rows))

	for _, r := range rows {
		k := key{r.PlayerID, r.Season, r.Team}
		cur, seen := best[k]
		if !seen {
			best[k] = r
			order = append(order, k)
			continue
		}
		if r.MinutesPerGame > cur.MinutesPerGame {
			best[k] = r
		}
	}

	out := make([]stats.SeasonRow, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldName lowercases and strips diacritics for duplicate detection.
func foldName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
