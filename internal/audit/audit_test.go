package audit

import (
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestStoreRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		s.RecordAsync(Entry{
			RunAt:         base.Add(time.Duration(i) * time.Minute),
			TargetDate:    "2025-09-08",
			CourseCode:    "CSE 3123",
			Section:       "B",
			Unticked:      i,
			AlreadyAbsent: 1,
			Status:        "submitted",
		})
	}
	// Close drains the queue before the database shuts.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	entries, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent(2) = %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Unticked != 2 || entries[1].Unticked != 1 {
		t.Errorf("order = [%d, %d], want newest first [2, 1]",
			entries[0].Unticked, entries[1].Unticked)
	}
	if entries[0].CourseCode != "CSE 3123" || entries[0].Status != "submitted" {
		t.Errorf("entry round trip = %+v", entries[0])
	}
	if !entries[0].RunAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("RunAt = %v, want %v", entries[0].RunAt, base.Add(2*time.Minute))
	}
}

func TestStoreCloseIdempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	// Second close must not panic on the already-closed channel.
	_ = s.Close()
}
