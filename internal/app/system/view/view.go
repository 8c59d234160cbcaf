// Package view is a small virtual node tree that renders to HTML on the
// server and is hydrated onto existing markup on the client.
//
// Every element gets a hydration id: its child-index path from the root
// ("0", "0.1", "0.1.3"). The server writes it as data-hid and the hydrator
// uses it to pair markup with nodes.
package view

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/dalemusser/stratassr/internal/app/system/htmlsanitize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HIDAttr is the attribute carrying an element's hydration id.
const HIDAttr = "data-hid"

// Kind distinguishes element and text nodes.
type Kind int

const (
	ElementNode Kind = iota
	TextNode
)

// Event is delivered to a Handler.
type Event struct {
	Type  string
	HID   string
	Value string
}

// Handler reacts to an event on an element.
type Handler func(Event) error

// Attr is one element attribute. Order is kept when rendering.
type Attr struct {
	Key, Val string
}

// A builds an Attr.
func A(key, val string) Attr { return Attr{Key: key, Val: val} }

// Node is a virtual element or text node.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string

	// InnerHTML, when set, is rendered as the element's content and the
	// element's Children are ignored. It is sanitised on construction.
	InnerHTML string

	handlers map[string]Handler
	hid      string
}

// El builds an element.
func El(tag string, attrs []Attr, children ...*Node) *Node {
	kids := make([]*Node, 0, len(children))
	for _, c := range children {
		if c != nil {
			kids = append(kids, c)
		}
	}
	return &Node{Kind: ElementNode, Tag: strings.ToLower(tag), Attrs: attrs, Children: kids}
}

// Text builds a text node.
func Text(s string) *Node { return &Node{Kind: TextNode, Text: s} }

// HTML builds an element whose content is stored markup or plain text,
// sanitised before use. Page content from the database goes through here.
func HTML(tag string, attrs []Attr, content string) *Node {
	n := El(tag, attrs)
	n.InnerHTML = htmlsanitize.Prepare(content)
	return n
}

// On registers h for event type typ and returns n.
func (n *Node) On(typ string, h Handler) *Node {
	if n.handlers == nil {
		n.handlers = make(map[string]Handler)
	}
	n.handlers[typ] = h
	return n
}

// Handlers returns the element's handlers keyed by event type.
func (n *Node) Handlers() map[string]Handler { return n.handlers }

// HID returns the hydration id assigned by Assign.
func (n *Node) HID() string { return n.hid }

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Assign normalises the tree (adjacent text nodes merge, empty ones drop,
// since markup cannot tell them apart) and assigns hydration ids.
func Assign(root *Node) {
	assign(root, "0")
}

func assign(n *Node, id string) {
	if n.Kind != ElementNode {
		return
	}
	n.hid = id
	n.Children = mergeText(n.Children)
	for i, c := range n.Children {
		assign(c, id+"."+strconv.Itoa(i))
	}
}

func mergeText(kids []*Node) []*Node {
	out := kids[:0:0]
	for _, c := range kids {
		if c.Kind == TextNode {
			if c.Text == "" {
				continue
			}
			if last := len(out) - 1; last >= 0 && out[last].Kind == TextNode {
				out[last] = Text(out[last].Text + c.Text)
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// Build converts the tree into detached html nodes, assigning ids first.
func Build(root *Node) (*html.Node, error) {
	Assign(root)
	return build(root)
}

func build(n *Node) (*html.Node, error) {
	if n.Kind == TextNode {
		return &html.Node{Type: html.TextNode, Data: n.Text}, nil
	}
	// ParseFragment rejects a context whose DataAtom disagrees with Data.
	el := &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(n.Tag)), Data: n.Tag}
	for _, a := range n.Attrs {
		el.Attr = append(el.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	el.Attr = append(el.Attr, html.Attribute{Key: HIDAttr, Val: n.hid})

	if n.InnerHTML != "" {
		frag, err := html.ParseFragment(strings.NewReader(n.InnerHTML), el)
		if err != nil {
			return nil, err
		}
		for _, f := range frag {
			el.AppendChild(f)
		}
		return el, nil
	}
	for _, c := range n.Children {
		child, err := build(c)
		if err != nil {
			return nil, err
		}
		el.AppendChild(child)
	}
	return el, nil
}

// Render writes the tree as HTML.
func Render(w io.Writer, root *Node) error {
	n, err := Build(root)
	if err != nil {
		return err
	}
	return html.Render(w, n)
}

// RenderString renders the tree to a string.
func RenderString(root *Node) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Find returns the element with the given hydration id, or nil.
func Find(root *Node, hid string) *Node {
	if root == nil || root.Kind != ElementNode {
		return nil
	}
	if root.hid == hid {
		return root
	}
	for _, c := range root.Children {
		if n := Find(c, hid); n != nil {
			return n
		}
	}
	return nil
}
