package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "update_progress.json"))
}

func TestLoad_MissingFileYieldsZeroState(t *testing.T) {
	s := testStore(t)

	st, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.LastProcessedID != 0 || st.DailyCount != 0 {
		t.Fatalf("missing file should yield zero state, got %+v", st)
	}
	if st.LastUpdateDate != time.Now().Format("2006-01-02") {
		t.Fatalf("date = %q, want today", st.LastUpdateDate)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := testStore(t)

	if err := s.Save(State{LastProcessedID: 3462, DailyCount: 41}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.LastProcessedID != 3462 || st.DailyCount != 41 {
		t.Fatalf("round trip lost state: %+v", st)
	}
}

func TestLoad_DayRolloverResetsBudget(t *testing.T) {
	s := testStore(t)
	if err := s.Save(State{LastProcessedID: 120, DailyCount: 250}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Reload as if the process restarted the next day.
	s.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	st, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.DailyCount != 0 {
		t.Fatalf("daily count = %d, want 0 after rollover", st.DailyCount)
	}
	if st.LastProcessedID != 120 {
		t.Fatalf("cursor = %d, rollover must not touch the cursor", st.LastProcessedID)
	}
}

func TestLoad_CorruptFileIsAnError(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := s.Load(); err == nil {
		t.Fatal("corrupt progress file must not be silently reset")
	}
}

func TestReset_RemovesFile(t *testing.T) {
	s := testStore(t)
	if err := s.Save(State{LastProcessedID: 7}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Fatalf("progress file still present after reset")
	}

	// Resetting again is a no-op.
	if err := s.Reset(); err != nil {
		t.Fatalf("second reset: %v", err)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	if err := s.Save(State{LastProcessedID: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the progress file, found %d entries", len(entries))
	}
}
