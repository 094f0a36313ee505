// Package calendar implements the date-targeting half of the resolution
// engine: reading and steering the mini-calendar month, scoring day-cell
// candidates, the click-and-verify fallback chain, and panel verification.
//
// The portal's calendar carries no stable semantic IDs. Day cells from the
// previous and next month share visible text with the wanted one, and the
// whole subtree re-renders on navigation, so every resolution pass works on
// fresh snapshots and nothing is cached across clicks.
package calendar

import (
	"log/slog"
	"time"

	"github.com/slcmtools/attendmark/internal/dateparse"
	"github.com/slcmtools/attendmark/internal/dom"
)

// sidebarSelector locates the mini-calendar wrapper.
const sidebarSelector = "#calendarSidebar, .calendarSidebar"

// MonthIndex is year*12+month. Differences give navigation direction and
// distance, and the total order makes the navigation loop monotonic.
type MonthIndex int

// IndexOf returns the MonthIndex for a date.
func IndexOf(t time.Time) MonthIndex {
	return MonthIndex(t.Year()*12 + int(t.Month()))
}

// maxNavSteps bounds month navigation. Two years in either direction is
// well past anything the portal will ever show.
const maxNavSteps = 24

// Direction of a single navigation step.
type Direction string

const (
	DirPrev Direction = "prev"
	DirNext Direction = "next"
)

// Navigator reads and advances the displayed mini-calendar month.
type Navigator struct {
	Port dom.Port
	Log  *slog.Logger

	// StepPause is the settle pause after each navigation click.
	StepPause time.Duration

	// Now is swapped in tests; the displayed-month fallback depends on it.
	Now func() time.Time
}

func (n *Navigator) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n *Navigator) log() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

func sidebar(p dom.Port) dom.Node {
	sb, err := dom.First(p, nil, sidebarSelector)
	if err != nil {
		return nil
	}
	return sb
}

// DisplayedMonth parses the visible month/year label out of the sidebar
// text. Best-effort: on any failure it reports the system's current month
// rather than erroring, so navigation can always compute a direction.
func (n *Navigator) DisplayedMonth() MonthIndex {
	current := MonthIndex(n.now().Year()*12 + int(n.now().Month()))

	sb := sidebar(n.Port)
	if sb == nil {
		return current
	}
	raw, err := n.Port.Text(sb)
	if err != nil || raw == "" {
		return current
	}
	lbl := dateparse.ExtractMonthLabel(raw)
	if lbl == "" {
		return current
	}
	year, month, ok := dateparse.ParseMonthLabel(lbl, n.now().Year())
	if !ok {
		return current
	}
	return MonthIndex(year*12 + int(month))
}

// Step issues exactly one prev/next navigation click. Returns false when no
// navigation control can be found.
func (n *Navigator) Step(dir Direction) bool {
	sb := sidebar(n.Port)
	if sb == nil {
		return false
	}

	// Titled buttons are the stable Lightning form.
	titled := "button[title='Previous Month'], button[aria-label='Previous Month']"
	if dir == DirNext {
		titled = "button[title='Next Month'], button[aria-label='Next Month']"
	}
	if btn, _ := dom.First(n.Port, sb, titled); btn != nil {
		return n.Port.Click(btn) == nil
	}

	// SLDS datepicker renders an unlabelled icon pair, prev first.
	if icons, _ := n.Port.Query(sb, ".slds-datepicker__nav .slds-button_icon"); len(icons) >= 2 {
		btn := icons[0]
		if dir == DirNext {
			btn = icons[len(icons)-1]
		}
		return n.Port.Click(btn) == nil
	}

	legacy := ".uiDatePicker .ui-datepicker-prev"
	if dir == DirNext {
		legacy = ".uiDatePicker .ui-datepicker-next"
	}
	if btn, _ := dom.First(n.Port, sb, legacy); btn != nil {
		return n.Port.Click(btn) == nil
	}

	// Last resort: anything that looks like an arrow.
	return n.clickArrow(sb, dir)
}

func (n *Navigator) clickArrow(sb dom.Node, dir Direction) bool {
	nodes, err := n.Port.Query(sb, "button, a")
	if err != nil {
		return false
	}
	var arrows []dom.Node
	for _, node := range nodes {
		txt, _ := n.Port.Text(node)
		cls, _ := n.Port.Attr(node, "class")
		if txt == "◀" || txt == "▶" ||
			containsFold(cls, "prev") || containsFold(cls, "next") {
			arrows = append(arrows, node)
		}
	}
	if len(arrows) == 0 {
		return false
	}
	btn := arrows[0]
	if dir == DirNext {
		btn = arrows[len(arrows)-1]
	}
	return n.Port.Click(btn) == nil
}

// NavigateTo steps toward the target month until it is displayed, a step
// fails, or the step budget runs out. Budget exhaustion is non-fatal: the
// caller continues best-effort and reports whether the target was reached.
func (n *Navigator) NavigateTo(target MonthIndex) bool {
	shown := n.DisplayedMonth()
	for steps := 0; shown != target && steps < maxNavSteps; steps++ {
		dir := DirPrev
		if target > shown {
			dir = DirNext
		}
		if !n.Step(dir) {
			n.log().Debug("calendar: navigation control not found", "direction", dir)
			break
		}
		if n.StepPause > 0 {
			time.Sleep(n.StepPause)
		}
		shown = n.DisplayedMonth()
	}
	if shown != target {
		n.log().Warn("calendar: month navigation fell short",
			"shown", int(shown), "target", int(target))
	}
	return shown == target
}
