package report

import (
	"strings"
	"testing"

	"github.com/slcmtools/attendmark/internal/roster"
)

func TestRender(t *testing.T) {
	s := roster.Summary{Results: []roster.Result{
		{ID: "220901001", Outcome: roster.OutcomeUnticked},
		{ID: "220901002", Outcome: roster.OutcomeAlreadyAbsent},
		{ID: "220909999", Outcome: roster.OutcomeNotFound},
	}}

	var buf strings.Builder
	Render(&buf, s)
	out := buf.String()

	for _, want := range []string{
		"unticked        220901001",
		"already absent  220901002",
		"not found       220909999",
		"unticked:       1",
		"already absent: 1",
		"not found:      1",
		"- 220909999",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf strings.Builder
	Render(&buf, roster.Summary{})
	out := buf.String()
	if !strings.Contains(out, "attendance summary") {
		t.Errorf("empty summary output missing the header:\n%s", out)
	}
	if strings.Contains(out, "- ") {
		t.Errorf("empty summary lists identifiers:\n%s", out)
	}
}
