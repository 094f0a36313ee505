package calendar

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slcmtools/attendmark/internal/dom"
)

// Candidate priority bands. Exact machine-readable date match beats a
// partial month match, which beats any enabled cell, which beats disabled.
const (
	PriorityExact    = 100
	PriorityMonth    = 90
	PriorityEnabled  = 50
	PriorityDisabled = 10
)

// disabledClassTokens mark cells that belong to an adjacent month or are
// otherwise not clickable targets.
var disabledClassTokens = []string{
	"disabled", "slds-disabled", "slds-disabled-text",
	"prevmonth", "nextmonth", "outside", "adjacent", "other-month",
}

// Candidate is a snapshot of one DOM node that could represent the target
// day. Candidates are ephemeral: they are recomputed on every resolution
// attempt and never cached across UI mutations.
type Candidate struct {
	Node     dom.Node
	Day      string
	DataDate string
	Class    string
	Aria     string
	Title    string
	Disabled bool

	// Top is the vertical offset relative to the calendar wrapper, not the
	// viewport, so "topmost occurrence" stays well defined under nested
	// scroll contexts.
	Top float64

	Priority int
}

// Resolver finds and scores day-cell candidates in the mini-calendar.
type Resolver struct {
	Port dom.Port
	Log  *slog.Logger
}

// Collect scans the calendar subtree for nodes whose trimmed text equals
// the day number and scores each against the target date. The result is
// ordered by descending priority, ties broken by ascending offset, so the
// exact-match group always comes first and each group reads top-down.
// Read-only: nothing is clicked or mutated.
func (r *Resolver) Collect(day int, target time.Time) ([]Candidate, error) {
	sb := sidebar(r.Port)
	if sb == nil {
		return nil, nil
	}

	nodes, err := r.Port.Query(sb, "*")
	if err != nil {
		return nil, err
	}

	dayStr := strconv.Itoa(day)
	iso := target.Format("2006-01-02")
	yearMonth := target.Format("2006-01")

	var out []Candidate
	for _, n := range nodes {
		txt, err := r.Port.Text(n)
		if err != nil || txt != dayStr {
			continue
		}

		c := Candidate{Node: n, Day: dayStr}
		c.DataDate, _ = r.Port.Attr(n, "data-date")
		c.Class, _ = r.Port.Attr(n, "class")
		c.Aria, _ = r.Port.Attr(n, "aria-label")
		c.Title, _ = r.Port.Attr(n, "title")
		ariaDisabled, _ := r.Port.Attr(n, "aria-disabled")
		c.Disabled = ariaDisabled == "true" || hasDisabledClass(c.Class)
		c.Top, _ = r.Port.OffsetWithin(n, sb)

		switch {
		case c.DataDate == iso:
			c.Priority = PriorityExact
		case c.DataDate != "" && strings.Contains(c.DataDate, yearMonth):
			c.Priority = PriorityMonth
		case !c.Disabled:
			c.Priority = PriorityEnabled
		default:
			c.Priority = PriorityDisabled
		}

		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Top < out[j].Top
	})
	return out, nil
}

// UnambiguousFor reports whether clicking the candidate is safe without
// month navigation: it either carries the target's exact date attribute or
// its descriptive text names both the target's month and year.
func UnambiguousFor(c Candidate, target time.Time) bool {
	if c.DataDate == target.Format("2006-01-02") {
		return true
	}
	desc := strings.TrimSpace(c.Aria + " " + c.Title)
	if desc == "" {
		return false
	}
	return containsFold(desc, target.Month().String()) &&
		strings.Contains(desc, strconv.Itoa(target.Year()))
}

func hasDisabledClass(class string) bool {
	for _, tok := range disabledClassTokens {
		if containsFold(class, tok) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
