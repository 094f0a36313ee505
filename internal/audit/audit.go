// Package audit persists one row per attendance run to a local SQLite
// database, so operators can answer "did Tuesday's attendance go through"
// without digging through logs. Writes are asynchronous and never block or
// fail the run.
package audit

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Schema for the attendance_runs table, applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS attendance_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_at INTEGER NOT NULL,
	target_date TEXT NOT NULL,
	course_code TEXT NOT NULL,
	section TEXT NOT NULL,
	unticked INTEGER NOT NULL,
	already_absent INTEGER NOT NULL,
	not_found INTEGER NOT NULL,
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attendance_runs_date ON attendance_runs(target_date);
`

// Entry is one run record.
type Entry struct {
	RunAt         time.Time
	TargetDate    string
	CourseCode    string
	Section       string
	Unticked      int
	AlreadyAbsent int
	NotFound      int
	Status        string // completed | failed | submitted
}

// Store persists run entries asynchronously.
type Store struct {
	db   *sql.DB
	ch   chan Entry
	done chan struct{}
	once sync.Once
}

// Open opens (creating if needed) the audit database at path and applies
// the schema. The caller must have imported a driver registered as
// "sqlite".
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	s := &Store{
		db:   db,
		ch:   make(chan Entry, 64),
		done: make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

// RecordAsync queues an entry for persistence. Non-blocking; drops when the
// buffer is full rather than backpressuring the run.
func (s *Store) RecordAsync(e Entry) {
	select {
	case s.ch <- e:
	default:
	}
}

// Recent returns the most recent n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT run_at, target_date, course_code, section,
		       unticked, already_absent, not_found, status
		FROM attendance_runs ORDER BY run_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var runAt int64
		if err := rows.Scan(&runAt, &e.TargetDate, &e.CourseCode, &e.Section,
			&e.Unticked, &e.AlreadyAbsent, &e.NotFound, &e.Status); err != nil {
			return nil, err
		}
		e.RunAt = time.UnixMilli(runAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close drains queued entries and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return s.db.Close()
}

func (s *Store) flushLoop() {
	defer close(s.done)
	for e := range s.ch {
		_, err := s.db.Exec(`
			INSERT INTO attendance_runs
				(run_at, target_date, course_code, section,
				 unticked, already_absent, not_found, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunAt.UnixMilli(), e.TargetDate, e.CourseCode, e.Section,
			e.Unticked, e.AlreadyAbsent, e.NotFound, e.Status)
		if err != nil {
			// Auditing must never take the run down with it.
			continue
		}
	}
}
