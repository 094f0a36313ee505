package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/slcmtools/attendmark/internal/dom"
)

// panelDoc has a day panel whose grid cell carries the machine-readable
// date, the shape Lightning renders after a successful day click.
const panelDoc = `
<div id="page">
  <div class="calendarDay" data-date="2025-09-08">
    <div class="eventList">
      <ul class="eventListContainer"><li>tile</li></ul>
    </div>
  </div>
  <div id="calendarSidebar">September 2025</div>
</div>`

func TestVerifyByMarkerBlock(t *testing.T) {
	v := &Verifier{Port: dom.MustFake(panelDoc)}
	if !v.Verify(Marker{Date: "2025-09-08"}, target(t)) {
		t.Error("Verify = false, want true via marker block")
	}
}

func TestVerifyByMarkerAncestor(t *testing.T) {
	// The dated element's own wrapper has no list; only the container above
	// it does.
	doc := `
<div id="page">
  <div class="cellWrap"><span data-date="2025-09-08">8</span></div>
  <div class="eventList"><ul class="eventListContainer"></ul></div>
</div>`
	v := &Verifier{Port: dom.MustFake(doc)}
	if !v.Verify(Marker{Date: "2025-09-08"}, target(t)) {
		t.Error("Verify = false, want true via marker ancestor")
	}
}

func TestVerifyByDescriptiveText(t *testing.T) {
	doc := `
<div id="page">
  <div aria-label="Events for September 8, 2025 2025-09-08">
    <div class="eventList"><ul class="eventListContainer"></ul></div>
  </div>
</div>`
	v := &Verifier{Port: dom.MustFake(doc)}
	if !v.Verify(Marker{Date: "2025-09-08"}, target(t)) {
		t.Error("Verify = false, want true via descriptive scan")
	}
}

func TestVerifyByAssistiveHeader(t *testing.T) {
	doc := `
<div id="page">
  <h2 class="slds-assistive-text">Monday, September 8</h2>
  <div class="calendarDay"></div>
</div>`
	v := &Verifier{Port: dom.MustFake(doc)}
	// Empty marker skips the marker strategies entirely.
	if !v.Verify(Marker{}, target(t)) {
		t.Error("Verify = false, want true via assistive header")
	}
}

func TestVerifyByRelaxedHeading(t *testing.T) {
	doc := `
<div id="page">
  <h3>Events on Monday, September 8 this week</h3>
</div>`
	v := &Verifier{Port: dom.MustFake(doc)}
	if !v.Verify(Marker{}, target(t)) {
		t.Error("Verify = false, want heading-only acceptance")
	}
}

func TestVerifyMiss(t *testing.T) {
	doc := `
<div id="page">
  <h2 class="slds-assistive-text">Tuesday, September 9</h2>
  <div class="calendarDay"></div>
</div>`
	v := &Verifier{Port: dom.MustFake(doc)}
	if v.Verify(Marker{Date: "2025-09-08"}, target(t)) {
		t.Error("Verify = true on a different day's panel, want false")
	}
}

func TestFindDayPanel(t *testing.T) {
	doc := `
<div id="page">
  <h2 class="slds-assistive-text">Sunday, September 7</h2>
  <div class="calendarDay" id="wrong"></div>
  <h2 class="slds-assistive-text">Monday, September 08</h2>
  <div class="calendarDay" id="right"></div>
</div>`
	f := dom.MustFake(doc)
	v := &Verifier{Port: f}
	panel := v.FindDayPanel(target(t))
	if panel == nil {
		t.Fatal("FindDayPanel = nil, want the padded-day panel")
	}
	if id, _ := f.Attr(panel, "id"); id != "right" {
		t.Errorf("FindDayPanel id = %q, want right", id)
	}
}

func TestWaitPanel(t *testing.T) {
	ready := `
<div id="page">
  <h2 class="slds-assistive-text">Monday, September 8</h2>
  <div class="calendarDay">
    <div class="eventList"><ul class="eventListContainer"></ul></div>
  </div>
</div>`
	v := &Verifier{Port: dom.MustFake(ready), PollInterval: time.Millisecond}
	panel, ok := v.WaitPanel(context.Background(), target(t), 50*time.Millisecond)
	if !ok || panel == nil {
		t.Fatal("WaitPanel = false on a ready panel")
	}

	// Panel without its list never becomes ready.
	empty := `
<div id="page">
  <h2 class="slds-assistive-text">Monday, September 8</h2>
  <div class="calendarDay"></div>
</div>`
	v = &Verifier{Port: dom.MustFake(empty), PollInterval: time.Millisecond}
	if _, ok := v.WaitPanel(context.Background(), target(t), 20*time.Millisecond); ok {
		t.Error("WaitPanel = true without an events list, want timeout")
	}
}
