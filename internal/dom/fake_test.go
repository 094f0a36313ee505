package dom

import (
	"testing"

	"golang.org/x/net/html"
)

const fakeDoc = `
<div id="page">
  <table>
    <tr id="row1">
      <td>220901234</td>
      <td><input type="checkbox" checked></td>
    </tr>
    <tr id="row2">
      <td>220905678</td>
      <td><input type="checkbox"></td>
    </tr>
  </table>
  <h2 class="slds-assistive-text">Monday, September 8</h2>
  <div class="calendarDay">
    <div class="eventList" data-fake-scrollheight="900" data-fake-clientheight="300">
      <ul class="eventListContainer">
        <li><a data-fake-top="120">Tile</a></li>
      </ul>
    </div>
  </div>
</div>`

func TestFakeTextCollapsesWhitespace(t *testing.T) {
	f := MustFake(`<div id="x">  a
	 b   c </div>`)
	n, err := First(f, nil, "#x")
	if err != nil || n == nil {
		t.Fatalf("First: %v, node=%v", err, n)
	}
	got, err := f.Text(n)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "a b c" {
		t.Errorf("Text = %q, want %q", got, "a b c")
	}
}

func TestFakeCheckboxToggle(t *testing.T) {
	f := MustFake(fakeDoc)
	boxes, err := f.Query(nil, "input[type='checkbox']")
	if err != nil || len(boxes) != 2 {
		t.Fatalf("Query: %v, boxes=%d", err, len(boxes))
	}

	checked, _ := f.Checked(boxes[0])
	if !checked {
		t.Fatal("first checkbox should start checked")
	}
	if err := f.Click(boxes[0]); err != nil {
		t.Fatalf("Click: %v", err)
	}
	checked, _ = f.Checked(boxes[0])
	if checked {
		t.Error("first checkbox still checked after click")
	}

	checked, _ = f.Checked(boxes[1])
	if checked {
		t.Error("second checkbox should start unchecked")
	}
	if len(f.Clicks) != 1 {
		t.Errorf("Clicks = %d, want 1", len(f.Clicks))
	}
}

func TestFakeClosestAndSibling(t *testing.T) {
	f := MustFake(fakeDoc)

	cells, err := f.Query(nil, "td")
	if err != nil || len(cells) == 0 {
		t.Fatalf("Query td: %v", err)
	}
	row, err := f.Closest(cells[0], "tr")
	if err != nil || row == nil {
		t.Fatalf("Closest tr: %v, node=%v", err, row)
	}
	if id, _ := f.Attr(row, "id"); id != "row1" {
		t.Errorf("Closest tr id = %q, want row1", id)
	}

	// Closest includes the node itself.
	self, err := f.Closest(row, "tr")
	if err != nil || self == nil {
		t.Fatalf("Closest self: %v, node=%v", err, self)
	}
	if id, _ := f.Attr(self, "id"); id != "row1" {
		t.Errorf("Closest self id = %q, want row1", id)
	}

	h2, _ := First(f, nil, "h2")
	sib, err := f.FollowingSibling(h2, "div.calendarDay")
	if err != nil || sib == nil {
		t.Fatalf("FollowingSibling: %v, node=%v", err, sib)
	}
	if cls, _ := f.Attr(sib, "class"); cls != "calendarDay" {
		t.Errorf("sibling class = %q, want calendarDay", cls)
	}

	if n, err := f.FollowingSibling(h2, "section"); err != nil || n != nil {
		t.Errorf("FollowingSibling miss = (%v, %v), want (nil, nil)", n, err)
	}
}

func TestFakeParent(t *testing.T) {
	f := MustFake(fakeDoc)
	day, _ := First(f, nil, "div.calendarDay")
	par, err := f.Parent(day)
	if err != nil || par == nil {
		t.Fatalf("Parent: %v, node=%v", err, par)
	}
	if id, _ := f.Attr(par, "id"); id != "page" {
		t.Errorf("parent id = %q, want page", id)
	}
}

func TestFakeScrollState(t *testing.T) {
	f := MustFake(fakeDoc)
	list, _ := First(f, nil, "div.eventList")

	info, err := f.ScrollInfo(list)
	if err != nil {
		t.Fatalf("ScrollInfo: %v", err)
	}
	if info.Top != 0 || info.Height != 900 || info.ClientHeight != 300 {
		t.Errorf("ScrollInfo = %+v, want top=0 height=900 client=300", info)
	}

	if err := f.SetScrollTop(list, 180); err != nil {
		t.Fatalf("SetScrollTop: %v", err)
	}
	info, _ = f.ScrollInfo(list)
	if info.Top != 180 {
		t.Errorf("Top after scroll = %v, want 180", info.Top)
	}
}

func TestFakeOffsetWithin(t *testing.T) {
	f := MustFake(fakeDoc)
	page, _ := First(f, nil, "#page")
	a, _ := First(f, nil, "a")

	off, err := f.OffsetWithin(a, page)
	if err != nil {
		t.Fatalf("OffsetWithin: %v", err)
	}
	if off != 120 {
		t.Errorf("offset = %v, want 120 from data-fake-top", off)
	}

	// Without the attribute the offset falls back to document order.
	h2, _ := First(f, nil, "h2")
	off, err = f.OffsetWithin(h2, page)
	if err != nil {
		t.Fatalf("OffsetWithin fallback: %v", err)
	}
	if off <= 0 {
		t.Errorf("fallback offset = %v, want > 0", off)
	}
}

func TestFakeChildCount(t *testing.T) {
	f := MustFake(fakeDoc)
	ul, _ := First(f, nil, "ul.eventListContainer")
	n, err := f.ChildCount(ul)
	if err != nil {
		t.Fatalf("ChildCount: %v", err)
	}
	if n != 1 {
		t.Errorf("ChildCount = %d, want 1", n)
	}
}

func TestFakeOnClickMutation(t *testing.T) {
	f := MustFake(`<div id="page"><button id="open">Open</button></div>`)
	f.OnClick = func(n *html.Node) {
		page := f.Document()
		var find func(*html.Node) *html.Node
		find = func(n *html.Node) *html.Node {
			if n.Type == html.ElementNode && nodeAttr(n, "id") == "page" {
				return n
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if hit := find(c); hit != nil {
					return hit
				}
			}
			return nil
		}
		parent := find(page)
		parent.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "div",
			Attr: []html.Attribute{{Key: "class", Val: "modal-container"}},
		})
		f.Reindex()
	}

	btn, _ := First(f, nil, "#open")
	if err := f.Click(btn); err != nil {
		t.Fatalf("Click: %v", err)
	}
	modal, err := First(f, nil, "div.modal-container")
	if err != nil || modal == nil {
		t.Fatalf("modal not visible after click: %v, node=%v", err, modal)
	}
}
