// Package progress persists the incremental update cursor to a small JSON
// file so a restarted process resumes where the last one durably finished.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the durable progress record. LastProcessedID is the highest
// player ID whose fetch-aggregate-persist unit completed; DailyCount and
// LastUpdateDate carry the request budget across restarts within a day.
type State struct {
	LastProcessedID int    `json:"last_processed_id"`
	DailyCount      int    `json:"daily_count"`
	LastUpdateDate  string `json:"last_update_date"`
}

// Store reads and writes State at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a progress store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load reads the persisted state. A missing file yields the zero state; an
// unreadable or malformed file is a configuration error, not something to
// silently reset, since that would re-burn the daily budget from zero.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return State{LastUpdateDate: s.today()}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read progress file %s: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse progress file %s: %w", s.path, err)
	}

	// Day rollover: a new date resets the request budget only. The cursor
	// survives so a pass spanning several days resumes where it stopped.
	if st.LastUpdateDate != s.today() {
		st.DailyCount = 0
		st.LastUpdateDate = s.today()
	}
	return st, nil
}

// Save writes the state durably: temp file in the same directory, then
// rename, so a crash mid-write never leaves a torn file behind.
func (s *Store) Save(st State) error {
	st.LastUpdateDate = s.today()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close progress: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace progress file: %w", err)
	}
	return nil
}

// Reset removes the progress file, so the next run starts a fresh pass.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}
