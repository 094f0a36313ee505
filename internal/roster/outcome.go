// Package roster updates the attendance table: it resolves each absentee's
// row inside a virtualized student list, toggles the presence checkbox, and
// accumulates per-student outcomes without ever letting one missing
// identifier abort the batch.
package roster

// Outcome classifies what happened to one absentee identifier.
type Outcome int

const (
	// OutcomeUnticked: the checkbox was checked and has been toggled off.
	OutcomeUnticked Outcome = iota
	// OutcomeAlreadyAbsent: the checkbox was already unchecked.
	OutcomeAlreadyAbsent
	// OutcomeNotFound: no cell or checkbox resolved within the per-item
	// time budget. Non-fatal; recorded and skipped.
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnticked:
		return "unticked"
	case OutcomeAlreadyAbsent:
		return "already-absent"
	case OutcomeNotFound:
		return "not-found"
	}
	return "unknown"
}

// Result pairs an identifier with its outcome.
type Result struct {
	ID      string
	Outcome Outcome
}

// Summary accumulates results in processing order. Individual failures are
// kept, never discarded.
type Summary struct {
	Results []Result
}

func (s *Summary) add(id string, o Outcome) {
	s.Results = append(s.Results, Result{ID: id, Outcome: o})
}

// Unticked returns the identifiers whose boxes were toggled off.
func (s *Summary) Unticked() []string { return s.withOutcome(OutcomeUnticked) }

// AlreadyAbsent returns the identifiers already marked absent.
func (s *Summary) AlreadyAbsent() []string { return s.withOutcome(OutcomeAlreadyAbsent) }

// NotFound returns the identifiers that could not be resolved.
func (s *Summary) NotFound() []string { return s.withOutcome(OutcomeNotFound) }

func (s *Summary) withOutcome(o Outcome) []string {
	var out []string
	for _, r := range s.Results {
		if r.Outcome == o {
			out = append(out, r.ID)
		}
	}
	return out
}
