// Package report renders the console summary of a run.
package report

import (
	"fmt"
	"io"

	"github.com/slcmtools/attendmark/internal/roster"
)

// Render writes per-absentee outcome lines followed by the aggregate
// summary. Not-found identifiers are listed individually so the operator
// can mark them by hand.
func Render(w io.Writer, s roster.Summary) {
	for _, r := range s.Results {
		switch r.Outcome {
		case roster.OutcomeUnticked:
			fmt.Fprintf(w, "unticked        %s\n", r.ID)
		case roster.OutcomeAlreadyAbsent:
			fmt.Fprintf(w, "already absent  %s\n", r.ID)
		case roster.OutcomeNotFound:
			fmt.Fprintf(w, "not found       %s\n", r.ID)
		}
	}

	unticked := s.Unticked()
	already := s.AlreadyAbsent()
	notFound := s.NotFound()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "attendance summary")
	fmt.Fprintf(w, "  unticked:       %d\n", len(unticked))
	fmt.Fprintf(w, "  already absent: %d\n", len(already))
	fmt.Fprintf(w, "  not found:      %d\n", len(notFound))
	for _, id := range notFound {
		fmt.Fprintf(w, "    - %s\n", id)
	}
}
