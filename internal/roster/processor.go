package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/slcmtools/attendmark/internal/dom"
)

// cellSelectors are the structural lookups tried for an exact-text student
// cell, most specific first. The generic scan is the fallback.
var cellSelectors = []string{
	"lightning-base-formatted-text",
	"td",
}

const genericCellSelector = "lightning-base-formatted-text, td, span"

// Processor resolves absentee rows and toggles their checkboxes. Each
// identifier gets a fixed time budget; expiry yields OutcomeNotFound and
// processing moves on.
type Processor struct {
	Port dom.Port
	Log  *slog.Logger

	// PerItemBudget bounds the search for one identifier. Defaults to 5s.
	PerItemBudget time.Duration
	// ScrollTries is the number of incremental table scrolls per retry
	// round. Defaults to 6.
	ScrollTries int
	// ScrollPause after each table scroll. Defaults to 200ms.
	ScrollPause time.Duration
	// RetryPause between search rounds. Defaults to 100ms.
	RetryPause time.Duration
}

func (p *Processor) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Process works through all identifiers, accumulating a Summary. One
// identifier's failure never stops the rest.
func (p *Processor) Process(ctx context.Context, ids []string) Summary {
	var summary Summary
	for _, id := range ids {
		outcome := p.processOne(ctx, id)
		summary.add(id, outcome)
		switch outcome {
		case OutcomeUnticked:
			p.log().Info("roster: unticked", "id", id)
		case OutcomeAlreadyAbsent:
			p.log().Info("roster: already unticked", "id", id)
		case OutcomeNotFound:
			p.log().Warn("roster: not found, skipped", "id", id)
		}
	}
	return summary
}

// processOne searches for the identifier's cell, scrolling the virtualized
// table forward between attempts, then resolves and toggles the row's
// checkbox. The budget caps the whole sequence.
func (p *Processor) processOne(ctx context.Context, id string) Outcome {
	budget := p.PerItemBudget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	retryPause := p.RetryPause
	if retryPause <= 0 {
		retryPause = 100 * time.Millisecond
	}

	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		cell := p.findCell(id)
		if cell == nil {
			p.scrollTable()
			time.Sleep(retryPause)
			continue
		}

		checkbox := p.findCheckbox(cell)
		if checkbox == nil {
			p.scrollTable()
			time.Sleep(retryPause)
			continue
		}

		_ = p.Port.ScrollIntoView(checkbox)
		checked, err := p.Port.Checked(checkbox)
		if err != nil {
			time.Sleep(retryPause)
			continue
		}
		if !checked {
			return OutcomeAlreadyAbsent
		}
		if err := p.Port.Click(checkbox); err != nil {
			time.Sleep(retryPause)
			continue
		}
		return OutcomeUnticked
	}
	return OutcomeNotFound
}

// findCell tries the structural lookups first, then the generic full-page
// text scan.
func (p *Processor) findCell(id string) dom.Node {
	for _, sel := range cellSelectors {
		nodes, err := p.Port.Query(nil, sel)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if txt, err := p.Port.Text(n); err == nil && txt == id {
				return n
			}
		}
	}

	nodes, err := p.Port.Query(nil, genericCellSelector)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		if txt, err := p.Port.Text(n); err == nil && txt == id {
			return n
		}
	}
	return nil
}

func (p *Processor) findCheckbox(cell dom.Node) dom.Node {
	row, err := p.Port.Closest(cell, "tr")
	if err != nil || row == nil {
		return nil
	}
	checkbox, _ := dom.First(p.Port, row, "input[type='checkbox']")
	return checkbox
}

// scrollTable reveals more virtualized rows with a burst of small scroll
// steps on the table's scrollable container.
func (p *Processor) scrollTable() {
	tries := p.ScrollTries
	if tries <= 0 {
		tries = 6
	}
	pause := p.ScrollPause
	if pause <= 0 {
		pause = 200 * time.Millisecond
	}

	container, _ := dom.First(p.Port, nil, "div.slds-scrollable, div.slds-table--scroll")
	if container == nil {
		return
	}
	for i := 0; i < tries; i++ {
		info, err := p.Port.ScrollInfo(container)
		if err != nil {
			return
		}
		step := info.ClientHeight * 0.35
		if step < 80 {
			step = 80
		}
		newTop := info.Top + step
		if info.Height > 0 && newTop > info.Height {
			newTop = info.Height
		}
		if err := p.Port.SetScrollTop(container, newTop); err != nil {
			return
		}
		time.Sleep(pause)
	}
}
