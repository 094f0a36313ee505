package roster

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/slcmtools/attendmark/internal/dom"
)

func fastSubmitter(f dom.Port) *Submitter {
	return &Submitter{
		Port:         f,
		ModalTimeout: 100 * time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

// appendModal attaches a confirmation modal under #page, as the portal does
// after the submit click.
func appendModal(f *dom.Fake, confirmLabel string, brandOnly bool) {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == "page" {
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
	page := find(f.Document())

	modal := &html.Node{
		Type: html.ElementNode,
		Data: "div",
		Attr: []html.Attribute{{Key: "class", Val: "slds-modal"}},
	}
	btnClass := ""
	if brandOnly {
		btnClass = "slds-button_brand"
	}
	btn := &html.Node{
		Type: html.ElementNode,
		Data: "button",
		Attr: []html.Attribute{
			{Key: "class", Val: btnClass},
			{Key: "id", Val: "confirm-btn"},
		},
	}
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: confirmLabel})
	modal.AppendChild(btn)
	page.AppendChild(modal)
	f.Reindex()
}

func TestSubmitConfirms(t *testing.T) {
	f := dom.MustFake(`<div id="page"><button id="submit">Submit Attendance</button></div>`)
	f.OnClick = func(n *html.Node) {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "submit" {
				appendModal(f, "Confirm Submission", false)
			}
		}
	}

	s := fastSubmitter(f)
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(f.Clicks) != 2 {
		t.Fatalf("Clicks = %d, want submit then confirm", len(f.Clicks))
	}
	last := f.Clicks[1]
	id := ""
	for _, a := range last.Attr {
		if a.Key == "id" {
			id = a.Val
		}
	}
	if id != "confirm-btn" {
		t.Errorf("second click on #%s, want #confirm-btn", id)
	}
}

func TestSubmitBrandButtonFallback(t *testing.T) {
	f := dom.MustFake(`<div id="page"><button id="submit">submit attendance</button></div>`)
	f.OnClick = func(n *html.Node) {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "submit" {
				// The modal's button says "Yes, confirm" instead of the
				// exact label; only its brand styling gives it away.
				appendModal(f, "Yes, confirm", true)
			}
		}
	}

	s := fastSubmitter(f)
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit with brand fallback: %v", err)
	}
}

func TestSubmitNoButton(t *testing.T) {
	f := dom.MustFake(`<div id="page"><button>Save Draft</button></div>`)
	s := fastSubmitter(f)
	err := s.Submit(context.Background())
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("Submit error = %v, want ErrSubmission", err)
	}
	if !strings.Contains(err.Error(), "submit button") {
		t.Errorf("error = %q, want it to name the missing submit button", err)
	}
}

func TestSubmitModalTimeout(t *testing.T) {
	f := dom.MustFake(`<div id="page"><button>Submit Attendance</button></div>`)
	s := fastSubmitter(f)
	err := s.Submit(context.Background())
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("Submit error = %v, want ErrSubmission", err)
	}
	if !strings.Contains(err.Error(), "modal") {
		t.Errorf("error = %q, want it to name the missing modal", err)
	}
}

func TestOpenAttendanceTab(t *testing.T) {
	f := dom.MustFake(`
<div id="page">
  <a data-label="Attendance" id="tab">Attendance</a>
</div>`)
	if !OpenAttendanceTab(f, nil) {
		t.Fatal("OpenAttendanceTab = false, want true")
	}
	if len(f.Clicks) != 1 {
		t.Fatalf("Clicks = %d, want 1", len(f.Clicks))
	}
}

func TestOpenAttendanceTabViaTitleSpan(t *testing.T) {
	f := dom.MustFake(`
<div id="page">
  <a id="tab" role="tab"><span class="title">Attendance</span></a>
  <span class="title">Details</span>
</div>`)
	if !OpenAttendanceTab(f, nil) {
		t.Fatal("OpenAttendanceTab via span = false, want true")
	}
	clicked := f.Clicks[0]
	if clicked.Data != "a" {
		t.Errorf("clicked <%s>, want the clickable ancestor <a>", clicked.Data)
	}
}

func TestOpenAttendanceTabMissing(t *testing.T) {
	f := dom.MustFake(`<div id="page"><span class="title">Details</span></div>`)
	if OpenAttendanceTab(f, nil) {
		t.Error("OpenAttendanceTab = true with no attendance tab")
	}
}
