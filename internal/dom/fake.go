package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Fake is an in-memory Port backed by a parsed HTML document. It exists so
// the resolution, verification, and matching logic can be exercised without
// a browser.
//
// Geometry and scroll state have no meaning in a static tree, so the fake
// reads them from attributes:
//
//	data-fake-top           vertical offset within the nearest queried container
//	data-fake-scrollheight  container scrollHeight
//	data-fake-clientheight  container clientHeight
//
// Absent attributes fall back to document order (offsets) or zero (scroll).
// Clicking a checkbox toggles its state, like a real one. Tests can attach
// OnClick to mutate the document in reaction to clicks (panel opening,
// list population).
type Fake struct {
	doc     *html.Node
	scroll  map[*html.Node]float64
	checked map[*html.Node]bool
	order   map[*html.Node]int

	// OnClick, if set, runs after every click with the clicked node.
	OnClick func(n *html.Node)

	// Clicks records every clicked node in order.
	Clicks []*html.Node
}

type fakeNode struct {
	n *html.Node
}

func (fakeNode) node() {}

// NewFake parses an HTML document into a Fake port.
func NewFake(doc string) (*Fake, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("dom: parse fake document: %w", err)
	}
	f := &Fake{
		doc:     root,
		scroll:  make(map[*html.Node]float64),
		checked: make(map[*html.Node]bool),
		order:   make(map[*html.Node]int),
	}
	f.Reindex()
	return f, nil
}

// MustFake is NewFake for tests with literal documents.
func MustFake(doc string) *Fake {
	f, err := NewFake(doc)
	if err != nil {
		panic(err)
	}
	return f
}

// Reindex rebuilds document-order indexes and initial checkbox state. Call
// it after mutating the tree from an OnClick hook.
func (f *Fake) Reindex() {
	i := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			f.order[n] = i
			i++
			if n.Data == "input" && nodeAttr(n, "type") == "checkbox" {
				if _, ok := f.checked[n]; !ok {
					f.checked[n] = nodeHasAttr(n, "checked")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(f.doc)
}

// Document returns the underlying parsed tree for OnClick hooks.
func (f *Fake) Document() *html.Node { return f.doc }

func (f *Fake) unwrap(n Node) (*html.Node, error) {
	if n == nil {
		return f.doc, nil
	}
	fn, ok := n.(fakeNode)
	if !ok || fn.n == nil {
		return nil, ErrDetached
	}
	return fn.n, nil
}

func (f *Fake) Query(scope Node, selector string) ([]Node, error) {
	root, err := f.unwrap(scope)
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range querySelectorAll(root, selector) {
		out = append(out, fakeNode{n})
	}
	return out, nil
}

func (f *Fake) Text(n Node) (string, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return "", err
	}
	return collapseSpace(collectText(hn)), nil
}

func (f *Fake) Attr(n Node, name string) (string, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return "", err
	}
	return nodeAttr(hn, name), nil
}

func (f *Fake) Click(n Node) error {
	hn, err := f.unwrap(n)
	if err != nil {
		return err
	}
	f.Clicks = append(f.Clicks, hn)
	if hn.Data == "input" && nodeAttr(hn, "type") == "checkbox" {
		f.checked[hn] = !f.checked[hn]
	}
	if f.OnClick != nil {
		f.OnClick(hn)
	}
	return nil
}

func (f *Fake) ScrollIntoView(n Node) error {
	_, err := f.unwrap(n)
	return err
}

func (f *Fake) Closest(n Node, selector string) (Node, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return nil, err
	}
	group := parseSelectorGroup(selector)
	for anc := hn; anc != nil; anc = anc.Parent {
		for _, chain := range group {
			if len(chain) == 1 && matchesSimple(anc, chain[0]) {
				return fakeNode{anc}, nil
			}
		}
	}
	return nil, nil
}

func (f *Fake) Parent(n Node) (Node, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return nil, err
	}
	for p := hn.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return fakeNode{p}, nil
		}
	}
	return nil, nil
}

func (f *Fake) FollowingSibling(n Node, selector string) (Node, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return nil, err
	}
	group := parseSelectorGroup(selector)
	for sib := hn.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		for _, chain := range group {
			if len(chain) == 1 && matchesSimple(sib, chain[0]) {
				return fakeNode{sib}, nil
			}
		}
	}
	return nil, nil
}

func (f *Fake) OffsetWithin(n, container Node) (float64, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return 0, err
	}
	if v := nodeAttr(hn, "data-fake-top"); v != "" {
		top, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("dom: bad data-fake-top %q: %w", v, err)
		}
		if top < 0 {
			top = 0
		}
		return top, nil
	}
	cn, err := f.unwrap(container)
	if err != nil {
		return 0, err
	}
	off := float64(f.order[hn] - f.order[cn])
	if off < 0 {
		off = 0
	}
	return off, nil
}

func (f *Fake) ScrollInfo(n Node) (ScrollInfo, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return ScrollInfo{}, err
	}
	info := ScrollInfo{Top: f.scroll[hn]}
	if v := nodeAttr(hn, "data-fake-scrollheight"); v != "" {
		info.Height, _ = strconv.ParseFloat(v, 64)
	}
	if v := nodeAttr(hn, "data-fake-clientheight"); v != "" {
		info.ClientHeight, _ = strconv.ParseFloat(v, 64)
	}
	return info, nil
}

func (f *Fake) SetScrollTop(n Node, top float64) error {
	hn, err := f.unwrap(n)
	if err != nil {
		return err
	}
	f.scroll[hn] = top
	return nil
}

func (f *Fake) ChildCount(n Node) (int, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return 0, err
	}
	count := 0
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count, nil
}

func (f *Fake) Checked(n Node) (bool, error) {
	hn, err := f.unwrap(n)
	if err != nil {
		return false, err
	}
	return f.checked[hn], nil
}

// collectText concatenates all text nodes under n.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
