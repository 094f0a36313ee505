package dom

import (
	"context"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// PagePort is the live Port backed by a Rod page. All queries are
// non-waiting: empty result sets come back as empty slices so the engine's
// own bounded poll loops stay in control of time.
type PagePort struct {
	page *rod.Page
}

type rodNode struct {
	el *rod.Element
}

func (rodNode) node() {}

// NewPagePort wraps a Rod page. The context bounds every CDP round trip.
func NewPagePort(ctx context.Context, page *rod.Page) *PagePort {
	return &PagePort{page: page.Context(ctx)}
}

func (p *PagePort) unwrap(n Node) (*rod.Element, bool) {
	rn, ok := n.(rodNode)
	return rn.el, ok && rn.el != nil
}

func (p *PagePort) Query(scope Node, selector string) ([]Node, error) {
	var els rod.Elements
	var err error
	if scope == nil {
		els, err = p.page.Elements(selector)
	} else {
		el, ok := p.unwrap(scope)
		if !ok {
			return nil, ErrDetached
		}
		els, err = el.Elements(selector)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(els))
	for _, el := range els {
		out = append(out, rodNode{el})
	}
	return out, nil
}

func (p *PagePort) Text(n Node) (string, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return "", ErrDetached
	}
	txt, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(txt), " "), nil
}

func (p *PagePort) Attr(n Node, name string) (string, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return "", ErrDetached
	}
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (p *PagePort) Click(n Node) error {
	el, ok := p.unwrap(n)
	if !ok {
		return ErrDetached
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Overlapped elements reject trusted clicks; a synthetic click
		// still reaches the Lightning handlers.
		_, jsErr := el.Eval(`() => this.click()`)
		return jsErr
	}
	return nil
}

func (p *PagePort) ScrollIntoView(n Node) error {
	el, ok := p.unwrap(n)
	if !ok {
		return ErrDetached
	}
	return el.ScrollIntoView()
}

func (p *PagePort) Closest(n Node, selector string) (Node, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return nil, ErrDetached
	}
	// A null result surfaces as an error from ElementByJS; the engine
	// treats every miss the same way, so both map to (nil, nil).
	found, err := el.ElementByJS(rod.Eval(`sel => this.closest(sel)`, selector))
	if err != nil || found == nil {
		return nil, nil
	}
	return rodNode{found}, nil
}

func (p *PagePort) Parent(n Node) (Node, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return nil, ErrDetached
	}
	found, err := el.ElementByJS(rod.Eval(`() => this.parentElement`))
	if err != nil || found == nil {
		return nil, nil
	}
	return rodNode{found}, nil
}

func (p *PagePort) FollowingSibling(n Node, selector string) (Node, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return nil, ErrDetached
	}
	found, err := el.ElementByJS(rod.Eval(`sel => {
		for (let sib = this.nextElementSibling; sib; sib = sib.nextElementSibling) {
			if (sib.matches(sel)) return sib;
		}
		return null;
	}`, selector))
	if err != nil || found == nil {
		return nil, nil
	}
	return rodNode{found}, nil
}

func (p *PagePort) OffsetWithin(n, container Node) (float64, error) {
	top, err := p.rectTop(n)
	if err != nil {
		return 0, err
	}
	base, err := p.rectTop(container)
	if err != nil {
		return 0, err
	}
	off := top - base
	if off < 0 {
		off = 0
	}
	return off, nil
}

func (p *PagePort) rectTop(n Node) (float64, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return 0, ErrDetached
	}
	res, err := el.Eval(`() => this.getBoundingClientRect().top`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (p *PagePort) ScrollInfo(n Node) (ScrollInfo, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return ScrollInfo{}, ErrDetached
	}
	res, err := el.Eval(`() => ({
		top: this.scrollTop,
		height: this.scrollHeight,
		client: this.clientHeight,
	})`)
	if err != nil {
		return ScrollInfo{}, err
	}
	return ScrollInfo{
		Top:          res.Value.Get("top").Num(),
		Height:       res.Value.Get("height").Num(),
		ClientHeight: res.Value.Get("client").Num(),
	}, nil
}

func (p *PagePort) SetScrollTop(n Node, top float64) error {
	el, ok := p.unwrap(n)
	if !ok {
		return ErrDetached
	}
	_, err := el.Eval(`top => { this.scrollTop = top }`, top)
	return err
}

func (p *PagePort) ChildCount(n Node) (int, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return 0, ErrDetached
	}
	res, err := el.Eval(`() => this.children.length`)
	if err != nil {
		return 0, err
	}
	return int(res.Value.Int()), nil
}

func (p *PagePort) Checked(n Node) (bool, error) {
	el, ok := p.unwrap(n)
	if !ok {
		return false, ErrDetached
	}
	res, err := el.Eval(`() => !!this.checked`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}
