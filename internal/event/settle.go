package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/slcmtools/attendmark/internal/dom"
)

// listSignature is the structural fingerprint polled by the settle
// detector: the list's scroll height plus its child count. When the
// signature stops moving, the async population has finished.
type listSignature struct {
	height   float64
	children int
}

// SettleDetector waits for the day panel's event list to stop changing
// structurally. Non-fatal by design: callers proceed on a false return and
// only log a warning, because a list that never settles may still contain
// the wanted tile.
type SettleDetector struct {
	Port dom.Port
	Log  *slog.Logger

	// Interval between polls. Defaults to 250ms.
	Interval time.Duration
	// Quiet is how long the signature must hold still. Defaults to 800ms.
	Quiet time.Duration
}

// WaitSettled polls the panel's list signature until it is unchanged for
// the quiet period, or the timeout expires.
func (s *SettleDetector) WaitSettled(ctx context.Context, panel dom.Node, timeout time.Duration) bool {
	interval := s.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	quiet := s.Quiet
	if quiet <= 0 {
		quiet = 800 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	last := listSignature{height: -1, children: -1}
	var stableSince time.Time

	for time.Now().Before(deadline) && ctx.Err() == nil {
		sig := s.signature(panel)
		if sig == last {
			if stableSince.IsZero() {
				stableSince = time.Now()
			} else if time.Since(stableSince) >= quiet {
				return true
			}
		} else {
			last = sig
			stableSince = time.Time{}
		}
		time.Sleep(interval)
	}
	return false
}

func (s *SettleDetector) signature(panel dom.Node) listSignature {
	var sig listSignature
	list, _ := dom.First(s.Port, panel, "div.eventList")
	if list == nil {
		return sig
	}
	if info, err := s.Port.ScrollInfo(list); err == nil {
		sig.height = info.Height
	}
	cont, _ := dom.First(s.Port, list, "ul.eventListContainer")
	if cont == nil {
		return sig
	}
	if count, err := s.Port.ChildCount(cont); err == nil {
		sig.children = count
	}
	return sig
}
