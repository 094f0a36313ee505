package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/slcmtools/attendmark/internal/dom"
)

func locatorTarget() time.Time {
	return time.Date(2025, time.September, 8, 0, 0, 0, 0, time.Local)
}

func locatorCriteria() Criteria {
	return Criteria{CourseCode: "CSE 3123", Semester: "V", Section: "B"}
}

const tilesDoc = `
<div id="panel">
  <div class="eventList" data-fake-scrollheight="900" data-fake-clientheight="300">
    <ul class="eventListContainer">
      <li><a class="subject-link" id="wrong-section"
             aria-description="DBMS, Monday 8 September, 2025, 9:00 AM">
        DBMS - CSE 3123 Semester V B-1</a></li>
      <li><a class="subject-link" id="wrong-day"
             aria-description="OS, Tuesday 9 September, 2025, 10:00 AM">
        OS - CSE 3123 Semester V (B)</a></li>
      <li><a class="subject-link" id="right"
             aria-description="OS, Monday 8 September, 2025, 10:00 AM">
        OS - CSE 3123 Semester V (B)</a></li>
    </ul>
  </div>
</div>`

func TestFindFirstPass(t *testing.T) {
	f := dom.MustFake(tilesDoc)
	panel, _ := dom.First(f, nil, "#panel")
	l := &Locator{Port: f, ScrollPause: time.Millisecond}

	tile, err := l.Find(context.Background(), panel, locatorCriteria(), locatorTarget(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if id, _ := f.Attr(tile, "id"); id != "right" {
		t.Errorf("Find picked #%s, want #right", id)
	}
	if len(f.Clicks) != 0 {
		t.Errorf("Find clicked %d nodes; locating must not click", len(f.Clicks))
	}
}

func TestFindScrollsToBottomThenFails(t *testing.T) {
	doc := `
<div id="panel">
  <div class="eventList" data-fake-scrollheight="900" data-fake-clientheight="300">
    <ul class="eventListContainer">
      <li><a aria-description="DS, Monday 8 September, 2025">DS - CSE 2201 Semester V (B)</a></li>
    </ul>
  </div>
</div>`
	f := dom.MustFake(doc)
	panel, _ := dom.First(f, nil, "#panel")
	l := &Locator{Port: f, ScrollPause: time.Millisecond}

	_, err := l.Find(context.Background(), panel, locatorCriteria(), locatorTarget(), time.Second)
	if !errors.Is(err, ErrTileNotFound) {
		t.Fatalf("Find error = %v, want ErrTileNotFound", err)
	}

	list, _ := dom.First(f, nil, "div.eventList")
	info, _ := f.ScrollInfo(list)
	if info.Top != 900 {
		t.Errorf("scroll top = %v, want the full height 900 after bottoming out", info.Top)
	}
}

func TestFindTileRevealedByScroll(t *testing.T) {
	// The matching tile exists but its aria date only attaches after the
	// list has been scrolled, like a virtualized list hydrating rows.
	doc := `
<div id="panel">
  <div class="eventList" data-fake-scrollheight="900" data-fake-clientheight="300">
    <ul class="eventListContainer">
      <li><a id="late">OS - CSE 3123 Semester V (B)</a></li>
    </ul>
  </div>
</div>`
	f := dom.MustFake(doc)
	panel, _ := dom.First(f, nil, "#panel")

	hydrated := false
	port := &hydratingPort{Fake: f, onScroll: func() {
		if hydrated {
			return
		}
		hydrated = true
		setAria(f, "late", "OS, Monday 8 September, 2025, 10:00 AM")
	}}

	l := &Locator{Port: port, ScrollPause: time.Millisecond}
	tile, err := l.Find(context.Background(), panel, locatorCriteria(), locatorTarget(), time.Second)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if id, _ := f.Attr(tile, "id"); id != "late" {
		t.Errorf("Find picked #%s, want #late", id)
	}
}

// setAria adds an aria-description to the element with the given id.
func setAria(f *dom.Fake, id, val string) {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if hit := find(c); hit != nil {
				return hit
			}
		}
		return nil
	}
	el := find(f.Document())
	if el == nil {
		return
	}
	el.Attr = append(el.Attr, html.Attribute{Key: "aria-description", Val: val})
}

// hydratingPort triggers a callback on the first scroll, mimicking lazy row
// hydration.
type hydratingPort struct {
	*dom.Fake
	onScroll func()
}

func (h *hydratingPort) SetScrollTop(n dom.Node, top float64) error {
	if err := h.Fake.SetScrollTop(n, top); err != nil {
		return err
	}
	if h.onScroll != nil {
		h.onScroll()
	}
	return nil
}
