// Package dom defines the port through which the resolution engine touches
// the live page. The engine never talks to the browser directly: everything
// goes through Port, so the same logic runs against a Rod page in production
// and an in-memory HTML document in tests.
package dom

import "errors"

// ErrDetached is returned when a node handle no longer resolves to a live
// element, typically after a re-render of a virtualized list.
var ErrDetached = errors.New("dom: node detached")

// Node is an opaque handle to a page element. Handles are backend-specific
// and must not be mixed between ports.
type Node interface {
	node()
}

// ScrollInfo describes the scroll state of a scrollable container.
type ScrollInfo struct {
	Top          float64
	Height       float64
	ClientHeight float64
}

// Port exposes the page primitives the engine needs. Implementations are
// PagePort (Rod-backed) and Fake (in-memory, for tests).
//
// Query accepts the CSS selector subset documented in css.go. A nil scope
// means the whole document. Lookups that find nothing return (nil, nil);
// errors are reserved for transport failures.
type Port interface {
	Query(scope Node, selector string) ([]Node, error)
	Text(n Node) (string, error)
	Attr(n Node, name string) (string, error)
	Click(n Node) error
	ScrollIntoView(n Node) error

	// Closest returns the nearest ancestor-or-self matching the selector,
	// or nil. Same contract as Element.closest.
	Closest(n Node, selector string) (Node, error)

	// Parent returns n's parent element, or nil at the document root.
	Parent(n Node) (Node, error)

	// FollowingSibling returns the first later sibling matching the
	// selector, or nil.
	FollowingSibling(n Node, selector string) (Node, error)

	// OffsetWithin reports n's vertical offset relative to container,
	// clamped to >= 0. Containers with nested scroll contexts keep the
	// offset well defined because it is never measured against the viewport.
	OffsetWithin(n, container Node) (float64, error)

	ScrollInfo(n Node) (ScrollInfo, error)
	SetScrollTop(n Node, top float64) error

	// ChildCount reports the number of element children of n.
	ChildCount(n Node) (int, error)

	// Checked reports the checked state of a checkbox input.
	Checked(n Node) (bool, error)
}

// First returns the first node matching the selector under scope, or nil.
func First(p Port, scope Node, selector string) (Node, error) {
	nodes, err := p.Query(scope, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}
