package event

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/slcmtools/attendmark/internal/dateparse"
	"github.com/slcmtools/attendmark/internal/dom"
)

// ErrTileNotFound is returned when no tile matches the criteria and target
// date before the search timeout.
var ErrTileNotFound = errors.New("event: tile not found")

// tileSelector prefers the explicit subject links but accepts any anchor;
// the matching predicate does the real filtering.
const tileSelector = "a.subject-link, a[data-id='subject-link'], a"

// Locator finds the target session tile, scrolling the list incrementally
// when it is virtualized.
type Locator struct {
	Port dom.Port
	Log  *slog.Logger

	// StepFraction of the visible height scrolled per iteration. Defaults
	// to 0.6.
	StepFraction float64
	// ScrollPause after each scroll. Defaults to 300ms.
	ScrollPause time.Duration
}

func (l *Locator) log() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

// Find re-collects and tests all tiles each iteration, returning the first
// structural match in reading order. When nothing matches it scrolls the
// list forward by a fixed fraction of its visible height, capped at the
// bottom, and repeats until the timeout, with one grace re-check after
// reaching the bottom.
func (l *Locator) Find(ctx context.Context, panel dom.Node, crit Criteria, target time.Time, timeout time.Duration) (dom.Node, error) {
	fraction := l.StepFraction
	if fraction <= 0 {
		fraction = 0.6
	}
	pause := l.ScrollPause
	if pause <= 0 {
		pause = 300 * time.Millisecond
	}

	if tile := l.collect(panel, crit, target); tile != nil {
		return tile, nil
	}

	deadline := time.Now().Add(timeout)
	seenBottom := false

	for time.Now().Before(deadline) && ctx.Err() == nil {
		container, _ := dom.First(l.Port, panel, "div.eventList")
		if container == nil {
			container = panel
		}

		info, err := l.Port.ScrollInfo(container)
		if err != nil {
			info = dom.ScrollInfo{}
		}

		step := 250.0
		if info.ClientHeight > 0 {
			step = info.ClientHeight * fraction
			if step < 40 {
				step = 40
			}
		}
		newTop := info.Top + step
		if info.Height > 0 && newTop >= info.Height-info.ClientHeight-2 {
			newTop = info.Height
			seenBottom = true
		}
		if err := l.Port.SetScrollTop(container, newTop); err != nil {
			l.log().Debug("event: scroll failed", "error", err)
		}

		time.Sleep(pause)

		if tile := l.collect(panel, crit, target); tile != nil {
			return tile, nil
		}

		if seenBottom {
			// One grace pass: late tiles can attach just after the last
			// scroll reaches the bottom.
			time.Sleep(400 * time.Millisecond)
			if tile := l.collect(panel, crit, target); tile != nil {
				return tile, nil
			}
			break
		}
	}

	return nil, ErrTileNotFound
}

// collect tests every visible tile against the criteria and the exact
// target date. The date check defends against cross-day bleed in a shared
// or virtualized list: a textual match on the wrong day is never accepted.
func (l *Locator) collect(panel dom.Node, crit Criteria, target time.Time) dom.Node {
	links, err := l.Port.Query(panel, tileSelector)
	if err != nil {
		return nil
	}
	for _, link := range links {
		title, err := l.Port.Text(link)
		if err != nil || title == "" {
			continue
		}
		if !Matches(title, crit) {
			continue
		}
		aria, _ := l.Port.Attr(link, "aria-description")
		d, ok := dateparse.ParseEventAria(aria)
		if !ok || !sameDay(d, target) {
			continue
		}
		return link
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
