// Package pipeline orchestrates ingestion: the incremental update loop
// against the remote stats source, bulk snapshot migration, and store
// verification.
package pipeline

import "fmt"

// Result tracks counts and errors from one ingestion run. Per-player
// failures are collected here and never abort the batch.
type Result struct {
	PlayersProcessed int
	PlayersUpdated   int
	PlayersSkipped   int
	SeasonsWritten   int
	Errors           []string
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"processed=%d updated=%d skipped=%d seasons=%d errors=%d",
		r.PlayersProcessed, r.PlayersUpdated, r.PlayersSkipped,
		r.SeasonsWritten, len(r.Errors),
	)
}
