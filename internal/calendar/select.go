package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slcmtools/attendmark/internal/dateparse"
	"github.com/slcmtools/attendmark/internal/dom"
)

// State names one strategy in the click-and-verify fallback chain. The
// ordering is a deliberate cost/risk trade-off: cheap, safe, non-navigating
// checks first; expensive, best-effort maneuvers last.
type State int

const (
	StatePrecheckExact State = iota
	StatePrecheckGlobal
	StatePrecheckUnambiguous
	StateMonthNavAndClick
	StateMainGridFallback
	StateNudgeRetry
	StateFailed
)

var stateNames = map[State]string{
	StatePrecheckExact:       "precheck-exact",
	StatePrecheckGlobal:      "precheck-global",
	StatePrecheckUnambiguous: "precheck-unambiguous",
	StateMonthNavAndClick:    "month-nav-and-click",
	StateMainGridFallback:    "main-grid-fallback",
	StateNudgeRetry:          "nudge-retry",
	StateFailed:              "failed",
}

func (s State) String() string { return stateNames[s] }

// ResolutionError is the single diagnostic error raised once every state is
// exhausted. It carries everything needed to understand what the calendar
// looked like when resolution gave up.
type ResolutionError struct {
	Day        int
	SeenDates  []string // every data-date attribute observed in the sidebar
	LastMarker string   // marker of the most recent click, "" if none
	MonthLabel string   // displayed month label, "" if unreadable
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf(
		"calendar: could not select day %d (seen data-dates=%v, last marker=%q, month label=%q)",
		e.Day, e.SeenDates, e.LastMarker, e.MonthLabel)
}

// Controller runs the fallback chain. Each strategy clicks at most within
// its own budget and every click is immediately verified; a verification
// miss advances to the next state rather than repeating the same click.
type Controller struct {
	Port      dom.Port
	Resolver  *Resolver
	Navigator *Navigator
	Verifier  *Verifier
	Log       *slog.Logger

	// AttemptPause separates consecutive click attempts within a state.
	AttemptPause time.Duration
	// PostClickPause lets the panel render before verification.
	PostClickPause time.Duration

	lastMarker Marker
}

func (c *Controller) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// SelectDate drives the chain until one strategy's click verifies. The
// returned error, if any, is a *ResolutionError.
func (c *Controller) SelectDate(ctx context.Context, target time.Time) error {
	steps := []struct {
		state State
		fn    func(context.Context, time.Time) bool
	}{
		{StatePrecheckExact, c.precheckExact},
		{StatePrecheckGlobal, c.precheckGlobal},
		{StatePrecheckUnambiguous, c.precheckUnambiguous},
		{StateMonthNavAndClick, c.monthNavAndClick},
		{StateMainGridFallback, c.mainGridFallback},
		{StateNudgeRetry, c.nudgeRetry},
	}

	for _, s := range steps {
		if ctx.Err() != nil {
			break
		}
		if s.fn(ctx, target) {
			c.log().Info("calendar: date selected", "state", s.state.String(),
				"date", target.Format("2006-01-02"))
			return nil
		}
		c.log().Debug("calendar: strategy exhausted", "state", s.state.String())
	}

	return c.failure(target)
}

// precheckExact clicks an exact-date candidate already in view, skipping
// navigation entirely.
func (c *Controller) precheckExact(ctx context.Context, target time.Time) bool {
	cands, err := c.Resolver.Collect(target.Day(), target)
	if err != nil || len(cands) == 0 {
		return false
	}
	// Collect orders the exact group first, topmost first.
	if cands[0].Priority != PriorityExact {
		return false
	}
	return c.clickAndVerify(cands[0].Node, c.markerFor(cands[0], target), target)
}

// precheckGlobal searches the whole page, not just the calendar, for a node
// carrying the exact date attribute.
func (c *Controller) precheckGlobal(ctx context.Context, target time.Time) bool {
	iso := target.Format("2006-01-02")
	el, _ := dom.First(c.Port, nil, "[data-date='"+iso+"']")
	if el == nil {
		return false
	}
	return c.clickAndVerify(el, Marker{Date: iso}, target)
}

// precheckUnambiguous clicks the first in-view candidate whose own
// attributes pin it to the target month, avoiding ambiguous duplicates.
func (c *Controller) precheckUnambiguous(ctx context.Context, target time.Time) bool {
	cands, err := c.Resolver.Collect(target.Day(), target)
	if err != nil {
		return false
	}
	for _, cand := range cands {
		if cand.Disabled || !UnambiguousFor(cand, target) {
			continue
		}
		return c.clickAndVerify(cand.Node, c.markerFor(cand, target), target)
	}
	return false
}

// monthNavAndClick navigates to the target month, re-collects, and works
// through candidates in priority order under an overall try budget.
func (c *Controller) monthNavAndClick(ctx context.Context, target time.Time) bool {
	c.Navigator.NavigateTo(IndexOf(target))

	cands, err := c.Resolver.Collect(target.Day(), target)
	if err != nil || len(cands) == 0 {
		return false
	}

	order := clickOrder(cands)
	budget := 2 * len(order)
	if budget < 6 {
		budget = 6
	}

	tried := 0
	for _, cand := range order {
		if tried >= budget || ctx.Err() != nil {
			break
		}
		tried++
		if c.clickAndVerify(cand.Node, c.markerFor(cand, target), target) {
			return true
		}
		c.pause()
	}
	return false
}

// mainGridFallback attempts a page-wide match using the date's long forms
// in descriptive attributes, then any enabled exact-text day cell.
func (c *Controller) mainGridFallback(ctx context.Context, target time.Time) bool {
	month := target.Month().String()
	year := fmt.Sprintf("%d", target.Year())
	day := fmt.Sprintf("%d", target.Day())
	patterns := []string{
		month + " " + day + ", " + year,
		month + " " + day + " " + year,
		month + " " + day,
	}

	nodes, err := c.Port.Query(nil, "[aria-label], [title], [data-date]")
	if err == nil {
		for _, n := range nodes {
			desc := c.describeNode(n)
			if !containsAny(desc, patterns) {
				continue
			}
			marker := Marker{}
			if d, ok := dateparse.ParseLongDate(desc); ok {
				marker.Date = d.Format("2006-01-02")
			}
			return c.clickAndVerify(n, marker, target)
		}
	}

	// Second pass: bare day text anywhere, skipping disabled cells. The
	// empty marker pushes verification onto the header strategies.
	cells, err := c.Port.Query(nil, "td, button, a, span")
	if err != nil {
		return false
	}
	for _, n := range cells {
		txt, err := c.Port.Text(n)
		if err != nil || txt != day {
			continue
		}
		cls, _ := c.Port.Attr(n, "class")
		if hasDisabledClass(cls) {
			continue
		}
		return c.clickAndVerify(n, Marker{}, target)
	}
	return false
}

// nudgeRetry forces a calendar re-render with a next+prev pair, then tries
// the freshly collected non-disabled candidates once more.
func (c *Controller) nudgeRetry(ctx context.Context, target time.Time) bool {
	c.Navigator.Step(DirNext)
	c.pause()
	c.Navigator.Step(DirPrev)
	c.pause()

	cands, err := c.Resolver.Collect(target.Day(), target)
	if err != nil {
		return false
	}
	for _, cand := range cands {
		if cand.Disabled || ctx.Err() != nil {
			continue
		}
		if c.clickAndVerify(cand.Node, c.markerFor(cand, target), target) {
			return true
		}
	}
	return false
}

// clickAndVerify performs one click and immediately verifies the outcome.
// The marker travels as an explicit value from the click into verification;
// no page-level side channel is involved.
func (c *Controller) clickAndVerify(n dom.Node, marker Marker, target time.Time) bool {
	c.lastMarker = marker
	_ = c.Port.ScrollIntoView(n)
	if err := c.Port.Click(n); err != nil {
		c.log().Debug("calendar: click failed", "error", err)
		return false
	}
	if c.PostClickPause > 0 {
		time.Sleep(c.PostClickPause)
	}
	return c.Verifier.Verify(marker, target)
}

// markerFor derives the click marker for a candidate: the machine-readable
// date when present, otherwise a long-form date parsed from its labels.
func (c *Controller) markerFor(cand Candidate, target time.Time) Marker {
	if cand.DataDate != "" {
		return Marker{Date: cand.DataDate}
	}
	if d, ok := dateparse.ParseLongDate(cand.Aria + " " + cand.Title); ok {
		return Marker{Date: d.Format("2006-01-02")}
	}
	return Marker{}
}

func (c *Controller) failure(target time.Time) error {
	e := &ResolutionError{
		Day:        target.Day(),
		LastMarker: c.lastMarker.Date,
	}
	if sb := sidebar(c.Port); sb != nil {
		if nodes, err := c.Port.Query(sb, "[data-date]"); err == nil {
			for _, n := range nodes {
				if v, _ := c.Port.Attr(n, "data-date"); v != "" {
					e.SeenDates = append(e.SeenDates, v)
				}
			}
		}
		if raw, err := c.Port.Text(sb); err == nil {
			e.MonthLabel = dateparse.ExtractMonthLabel(raw)
		}
	}
	return e
}

func (c *Controller) describeNode(n dom.Node) string {
	var parts []string
	for _, attr := range []string{"aria-label", "title", "data-date"} {
		if v, _ := c.Port.Attr(n, attr); v != "" {
			parts = append(parts, v)
		}
	}
	if txt, _ := c.Port.Text(n); txt != "" {
		parts = append(parts, txt)
	}
	return strings.Join(parts, "||")
}

// clickOrder arranges candidates for the navigation state: the exact and
// month-match group first, then remaining enabled cells, then everything
// else. Within each band Collect's ordering (topmost first) is preserved.
func clickOrder(cands []Candidate) []Candidate {
	seen := make(map[int]bool, len(cands))
	var order []Candidate
	for i, cand := range cands {
		if cand.Priority >= PriorityMonth {
			order = append(order, cand)
			seen[i] = true
		}
	}
	for i, cand := range cands {
		if !seen[i] && !cand.Disabled {
			order = append(order, cand)
			seen[i] = true
		}
	}
	for i, cand := range cands {
		if !seen[i] {
			order = append(order, cand)
		}
	}
	return order
}

func (c *Controller) pause() {
	if c.AttemptPause > 0 {
		time.Sleep(c.AttemptPause)
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
