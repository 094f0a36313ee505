package calendar

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/slcmtools/attendmark/internal/dateparse"
	"github.com/slcmtools/attendmark/internal/dom"
)

// Marker is the date identifier recorded as the explicit result of a date
// click. It corroborates panel identity; it is never the sole proof, and an
// empty marker simply skips the marker-based strategies.
type Marker struct {
	// Date in 2006-01-02 form, or "" when the clicked cell carried no
	// machine-readable date.
	Date string
}

// eventListSelector identifies the events sub-list a day panel must hold.
const eventListSelector = "div.eventList, div.calendarDay, ul.eventListContainer"

// structural blocks a day cell or panel fragment may be nested in, tried
// nearest-specific first.
var panelBlockSelectors = []string{"div.calendarDay", "section", "div"}

// Verifier confirms that the surface opened by a date click belongs to the
// intended date. Verify never returns an error: a miss just advances the
// caller's fallback chain.
type Verifier struct {
	Port dom.Port
	Log  *slog.Logger

	// PollInterval paces WaitPanel. Defaults to 250ms.
	PollInterval time.Duration
}

func (v *Verifier) log() *slog.Logger {
	if v.Log != nil {
		return v.Log
	}
	return slog.Default()
}

// Verify tries the verification strategies in order of confidence:
//
//	(a) element carrying the marker date → nearest structural block holds
//	    the events sub-list
//	(b) same, one ancestor container up
//	(c) any node whose descriptive text contains the marker date and which
//	    holds the events sub-list
//	(d) marker-independent: long-form day headers matched against heading
//	    elements, adjacent container preferred, heading-only accepted with
//	    lower confidence
func (v *Verifier) Verify(marker Marker, target time.Time) bool {
	if marker.Date != "" {
		if v.verifyByMarker(marker.Date) {
			return true
		}
	}
	return v.verifyByHeader(target)
}

func (v *Verifier) verifyByMarker(isoDate string) bool {
	el, _ := dom.First(v.Port, nil, "[data-date='"+isoDate+"']")
	if el != nil {
		block := v.closestBlock(el)
		cand := el
		if block != nil {
			cand = block
		}
		if v.hasEventList(cand) {
			v.log().Debug("calendar: panel verified via marker block", "date", isoDate)
			return true
		}
		// The block itself may be the cell wrapper; look one container up.
		if par, _ := v.Port.Parent(cand); par != nil {
			if anc := v.closestBlock(par); anc != nil && v.hasEventList(anc) {
				v.log().Debug("calendar: panel verified via marker ancestor", "date", isoDate)
				return true
			}
		}
	}

	// No element carries the attribute: scan descriptive text instead.
	nodes, err := v.Port.Query(nil, "[aria-description], [aria-label], [title]")
	if err != nil {
		return false
	}
	for _, n := range nodes {
		if !v.describes(n, isoDate) {
			continue
		}
		if v.hasEventList(n) {
			v.log().Debug("calendar: panel verified via descriptive scan", "date", isoDate)
			return true
		}
	}
	return false
}

func (v *Verifier) verifyByHeader(target time.Time) bool {
	// Exact assistive headers first.
	if panel := v.FindDayPanel(target); panel != nil {
		// A panel without its events list yet is still the right panel.
		v.log().Debug("calendar: panel verified via assistive header")
		return true
	}

	// Relaxed: any heading whose text contains a header variant.
	headers, err := v.Port.Query(nil, "h1, h2, h3")
	if err != nil {
		return false
	}
	wanted := lowerAll(dateparse.DayHeaderStrings(target))
	for _, h := range headers {
		txt, err := v.Port.Text(h)
		if err != nil {
			continue
		}
		txt = strings.ToLower(txt)
		for _, exp := range wanted {
			if !strings.Contains(txt, exp) {
				continue
			}
			if sib, _ := v.Port.FollowingSibling(h, "div.calendarDay, div.eventList"); sib != nil {
				v.log().Debug("calendar: panel verified via heading and container")
				return true
			}
			v.log().Debug("calendar: heading matched without container, accepting with lower confidence")
			return true
		}
	}
	return false
}

// FindDayPanel locates the day panel via the assistive-text header that
// Lightning renders for the selected day, or nil.
func (v *Verifier) FindDayPanel(target time.Time) dom.Node {
	headers, err := v.Port.Query(nil, "h2.slds-assistive-text")
	if err != nil {
		return nil
	}
	wanted := lowerAll(dateparse.DayHeaderStrings(target))
	for _, h := range headers {
		txt, err := v.Port.Text(h)
		if err != nil {
			continue
		}
		txt = strings.ToLower(txt)
		for _, exp := range wanted {
			if txt != exp {
				continue
			}
			if panel, _ := v.Port.FollowingSibling(h, "div.calendarDay"); panel != nil {
				return panel
			}
		}
	}
	return nil
}

// WaitPanel polls until the day panel exists and its events sub-list is
// attached, or the timeout expires.
func (v *Verifier) WaitPanel(ctx context.Context, target time.Time, timeout time.Duration) (dom.Node, bool) {
	interval := v.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if panel := v.FindDayPanel(target); panel != nil {
			if ready, _ := dom.First(v.Port, panel, "div.eventList ul.eventListContainer"); ready != nil {
				return panel, true
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil, false
		}
		time.Sleep(interval)
	}
}

func (v *Verifier) closestBlock(n dom.Node) dom.Node {
	for _, sel := range panelBlockSelectors {
		if block, _ := v.Port.Closest(n, sel); block != nil {
			return block
		}
	}
	return nil
}

func (v *Verifier) hasEventList(n dom.Node) bool {
	list, _ := dom.First(v.Port, n, eventListSelector)
	return list != nil
}

func (v *Verifier) describes(n dom.Node, want string) bool {
	var parts []string
	for _, attr := range []string{"aria-description", "aria-label", "title"} {
		if val, _ := v.Port.Attr(n, attr); val != "" {
			parts = append(parts, val)
		}
	}
	if txt, _ := v.Port.Text(n); txt != "" {
		parts = append(parts, txt)
	}
	return strings.Contains(strings.Join(parts, " "), want)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
