package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector subset shared by both port backends:
//
//   - tag: "td", "button"
//   - .class: ".slds-day", possibly stacked: ".a.b"
//   - #id: "#calendarSidebar"
//   - tag.class, tag#id: "div.eventList"
//   - [attr], [attr='val']: "input[type='checkbox']", "[data-date='2025-09-08']"
//   - descendant combinator (space): "div.eventList ul.eventListContainer"
//   - selector groups (comma): "td, .slds-day, button, a"
//
// Attribute values must not contain commas; the engine never needs them.

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	any     bool // "*"
}

type compoundSelector []simpleSelector // descendant chain

// parseSelectorGroup splits a comma-separated group into descendant chains.
func parseSelectorGroup(selector string) []compoundSelector {
	var group []compoundSelector
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var chain compoundSelector
		for _, simple := range strings.Fields(part) {
			chain = append(chain, parseSimpleSelector(simple))
		}
		if len(chain) > 0 {
			group = append(group, chain)
		}
	}
	return group
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr='val']", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if sel == "*" {
		s.any = true
		return s
	}

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		rest := sel[idx+1:]
		sel = sel[:idx]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			s.id = rest[:dot]
			s.classes = append(s.classes, strings.Split(rest[dot+1:], ".")...)
		} else {
			s.id = rest
		}
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.classes = append(s.classes, strings.Split(sel[idx+1:], ".")...)
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

// matchesSimple checks a single element against one simple selector.
func matchesSimple(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.any {
		return true
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && nodeAttr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(nodeAttr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if s.attrKey != "" {
		if s.attrVal != "" {
			if nodeAttr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !nodeHasAttr(n, s.attrKey) {
			return false
		}
	}
	return true
}

// matchesCompound checks the last simple selector against n and the earlier
// ones against n's ancestor chain, in order (descendant combinator).
func matchesCompound(n *html.Node, chain compoundSelector, root *html.Node) bool {
	if len(chain) == 0 {
		return false
	}
	if !matchesSimple(n, chain[len(chain)-1]) {
		return false
	}
	rest := chain[:len(chain)-1]
	anc := n.Parent
	for i := len(rest) - 1; i >= 0; i-- {
		matched := false
		for anc != nil && anc != root.Parent {
			if matchesSimple(anc, rest[i]) {
				matched = true
				anc = anc.Parent
				break
			}
			anc = anc.Parent
		}
		if !matched {
			return false
		}
	}
	return true
}

// querySelectorAll returns document-order matches for the selector under root.
// Root itself is not a candidate; only its descendants are.
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	group := parseSelectorGroup(selector)
	if len(group) == 0 {
		return nil
	}

	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n != root && n.Type == html.ElementNode {
			for _, chain := range group {
				if matchesCompound(n, chain, root) {
					results = append(results, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeHasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
