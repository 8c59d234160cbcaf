// Package hydrate attaches a view tree to markup that is already in a
// document, reusing the existing nodes instead of rebuilding them.
package hydrate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dalemusser/stratassr/internal/app/system/view"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	ErrNoMount   = errors.New("hydrate: mount node is nil")
	ErrNoHandler = errors.New("hydrate: no handler bound")
)

// Mismatch describes markup that did not match the tree. The markup is left
// as it is; nothing below a mismatched element gets handlers.
type Mismatch struct {
	HID      string
	Expected string
	Found    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, found %s", m.HID, m.Expected, m.Found)
}

// Options control hydration.
type Options struct {
	Logger *zap.Logger
	// WarnMismatches logs each mismatch at warn level.
	WarnMismatches bool
}

// Root is a hydrated tree: the mount node plus the handlers bound to it.
type Root struct {
	mount  *html.Node
	logger *zap.Logger
	warn   bool

	mu         sync.RWMutex
	tree       *view.Node
	nodes      map[string]*html.Node
	handlers   map[string]map[string]view.Handler
	mismatches []Mismatch
}

func newRoot(mount *html.Node, tree *view.Node, opts Options) *Root {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Root{
		mount:    mount,
		logger:   logger,
		warn:     opts.WarnMismatches,
		tree:     tree,
		nodes:    make(map[string]*html.Node),
		handlers: make(map[string]map[string]view.Handler),
	}
}

// Hydrate pairs tree with the children of mount. Mismatches never fail
// hydration; they are recorded and, when enabled, logged.
func Hydrate(mount *html.Node, tree *view.Node, opts Options) (*Root, error) {
	if mount == nil {
		return nil, ErrNoMount
	}
	view.Assign(tree)
	r := newRoot(mount, tree, opts)

	kids := significant(mount, true)
	switch {
	case len(kids) == 0:
		r.mismatch(tree.HID(), describe(tree), "nothing")
	default:
		r.walk(kids[0], tree)
		for _, extra := range kids[1:] {
			r.mismatch("", "nothing", describeDOM(extra))
		}
	}
	return r, nil
}

// Render replaces the children of mount with a fresh rendering of tree and
// binds its handlers.
func Render(mount *html.Node, tree *view.Node, opts Options) (*Root, error) {
	if mount == nil {
		return nil, ErrNoMount
	}
	r := newRoot(mount, tree, opts)
	if err := r.replace(tree); err != nil {
		return nil, err
	}
	return r, nil
}

// Update brings the mount in line with tree, as after a state change.
// Elements whose tag and hydration id still match are kept and patched in
// place; anything else is replaced by freshly built nodes.
func (r *Root) Update(tree *view.Node) error {
	built, err := view.Build(tree)
	if err != nil {
		return fmt.Errorf("hydrate: build: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[string]*html.Node)
	r.handlers = make(map[string]map[string]view.Handler)

	kids := significant(r.mount, true)
	if len(kids) == 0 {
		r.mount.AppendChild(built)
		r.bindAll(built, tree)
	} else {
		r.patch(kids[0], built, tree)
		for _, extra := range kids[1:] {
			r.mount.RemoveChild(extra)
		}
	}
	r.tree = tree
	return nil
}

// patch reconciles the live node old with the freshly built node fresh for
// v, moving nodes out of fresh as needed.
func (r *Root) patch(old, fresh *html.Node, v *view.Node) {
	if v.Kind == view.TextNode {
		if old.Type == html.TextNode {
			old.Data = fresh.Data
			return
		}
		swap(old, fresh)
		return
	}
	if old.Type != html.ElementNode || old.Data != fresh.Data {
		swap(old, fresh)
		r.bindAll(fresh, v)
		return
	}
	if hid, _ := attr(old, view.HIDAttr); hid != v.HID() {
		swap(old, fresh)
		r.bindAll(fresh, v)
		return
	}

	old.Attr = fresh.Attr
	r.bind(old, v)

	if v.InnerHTML != "" {
		for c := old.FirstChild; c != nil; c = old.FirstChild {
			old.RemoveChild(c)
		}
		for c := fresh.FirstChild; c != nil; c = fresh.FirstChild {
			fresh.RemoveChild(c)
			old.AppendChild(c)
		}
		return
	}

	hasText := false
	for _, c := range v.Children {
		if c.Kind == view.TextNode {
			hasText = true
			break
		}
	}
	oldKids := significant(old, !hasText)
	var freshKids []*html.Node
	for c := fresh.FirstChild; c != nil; c = c.NextSibling {
		freshKids = append(freshKids, c)
	}
	for i, fc := range freshKids {
		if i < len(oldKids) {
			r.patch(oldKids[i], fc, v.Children[i])
			continue
		}
		fresh.RemoveChild(fc)
		old.AppendChild(fc)
		if v.Children[i].Kind == view.ElementNode {
			r.bindAll(fc, v.Children[i])
		}
	}
	for _, extra := range oldKids[min(len(oldKids), len(freshKids)):] {
		old.RemoveChild(extra)
	}
}

// swap puts fresh where old is.
func swap(old, fresh *html.Node) {
	if fresh.Parent != nil {
		fresh.Parent.RemoveChild(fresh)
	}
	old.Parent.InsertBefore(fresh, old)
	old.Parent.RemoveChild(old)
}

func (r *Root) replace(tree *view.Node) error {
	built, err := view.Build(tree)
	if err != nil {
		return fmt.Errorf("hydrate: build: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := r.mount.FirstChild; c != nil; c = r.mount.FirstChild {
		r.mount.RemoveChild(c)
	}
	r.mount.AppendChild(built)
	r.tree = tree
	r.nodes = make(map[string]*html.Node)
	r.handlers = make(map[string]map[string]view.Handler)
	r.mismatches = nil
	r.bindAll(built, tree)
	return nil
}

func (r *Root) bindAll(n *html.Node, v *view.Node) {
	if v.Kind != view.ElementNode {
		return
	}
	r.bind(n, v)
	if v.InnerHTML != "" {
		return
	}
	c := n.FirstChild
	for _, vc := range v.Children {
		r.bindAll(c, vc)
		c = c.NextSibling
	}
}

func (r *Root) bind(n *html.Node, v *view.Node) {
	r.nodes[v.HID()] = n
	if hs := v.Handlers(); len(hs) > 0 {
		r.handlers[v.HID()] = hs
	}
}

func (r *Root) walk(n *html.Node, v *view.Node) {
	if v.Kind == view.TextNode {
		if n.Type != html.TextNode {
			r.mismatch(parentHID(n), describe(v), describeDOM(n))
			return
		}
		if n.Data != v.Text {
			r.mismatch(parentHID(n), describe(v), describeDOM(n))
		}
		return
	}

	if n.Type != html.ElementNode || n.Data != v.Tag {
		r.mismatch(v.HID(), describe(v), describeDOM(n))
		return
	}
	if hid, ok := attr(n, view.HIDAttr); ok && hid != v.HID() {
		r.mismatch(v.HID(), describe(v), describeDOM(n))
		return
	}
	for _, a := range v.Attrs {
		if got, ok := attr(n, a.Key); !ok || got != a.Val {
			r.mismatch(v.HID(), fmt.Sprintf("%s=%q", a.Key, a.Val), fmt.Sprintf("%s=%q", a.Key, got))
		}
	}
	r.bind(n, v)

	if v.InnerHTML != "" {
		return
	}
	hasText := false
	for _, c := range v.Children {
		if c.Kind == view.TextNode {
			hasText = true
			break
		}
	}
	kids := significant(n, !hasText)
	for i, vc := range v.Children {
		if i >= len(kids) {
			r.mismatch(v.HID(), describe(vc), "nothing")
			continue
		}
		r.walk(kids[i], vc)
	}
	for _, extra := range kids[min(len(kids), len(v.Children)):] {
		r.mismatch(v.HID(), "nothing", describeDOM(extra))
	}
}

func (r *Root) mismatch(hid, expected, found string) {
	m := Mismatch{HID: hid, Expected: expected, Found: found}
	r.mismatches = append(r.mismatches, m)
	if r.warn {
		r.logger.Warn("hydration mismatch",
			zap.String("hid", hid),
			zap.String("expected", expected),
			zap.String("found", found))
	}
}

// Dispatch delivers an event to the handler bound on the element with hid.
func (r *Root) Dispatch(hid string, ev view.Event) error {
	r.mu.RLock()
	h, ok := r.handlers[hid][ev.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrNoHandler, ev.Type, hid)
	}
	ev.HID = hid
	return h(ev)
}

// Bound reports whether an element with hid has a handler for typ.
func (r *Root) Bound(hid, typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[hid][typ]
	return ok
}

// Node returns the document node paired with the element hid.
func (r *Root) Node(hid string) *html.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[hid]
}

// Mismatches returns what did not match during Hydrate.
func (r *Root) Mismatches() []Mismatch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Mismatch(nil), r.mismatches...)
}

// Mount returns the mount node.
func (r *Root) Mount() *html.Node { return r.mount }

// significant returns the children of n that take part in matching.
// Comments are skipped, and so are whitespace-only text nodes when dropSpace.
func significant(n *html.Node, dropSpace bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if dropSpace && strings.TrimSpace(c.Data) == "" {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func parentHID(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}
	hid, _ := attr(n.Parent, view.HIDAttr)
	return hid
}

func describe(v *view.Node) string {
	if v.Kind == view.TextNode {
		return fmt.Sprintf("text %q", v.Text)
	}
	return "<" + v.Tag + ">"
}

func describeDOM(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return fmt.Sprintf("text %q", n.Data)
	case html.ElementNode:
		return "<" + n.Data + ">"
	default:
		return "node"
	}
}
