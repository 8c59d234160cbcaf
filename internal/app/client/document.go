package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var globalAssign = regexp.MustCompile(`window\.([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*`)

type global struct {
	raw json.RawMessage
	err error
}

// Document is a parsed page: its node tree plus the JSON values that inline
// scripts assign to window globals.
type Document struct {
	Root *html.Node

	mu      sync.Mutex
	globals map[string]global
}

// ParseDocument parses an HTML page.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{Root: root, globals: make(map[string]global)}
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && !hasAttr(n, "src") {
			d.collect(scriptText(n))
		}
		return true
	})
	return d, nil
}

// collect records every `window.NAME = <json>` in src. Scanning resumes
// after each decoded value, so text inside a value is never read as another
// assignment. A value that is not valid JSON is kept as an error and
// reported by Take.
func collect(src string) map[string]global {
	out := make(map[string]global)
	for pos := 0; pos < len(src); {
		m := globalAssign.FindStringSubmatchIndex(src[pos:])
		if m == nil {
			break
		}
		name := src[pos+m[2] : pos+m[3]]
		start := pos + m[1]

		dec := json.NewDecoder(strings.NewReader(src[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			out[name] = global{err: fmt.Errorf("window.%s: %w", name, err)}
			pos = start
			continue
		}
		out[name] = global{raw: raw}
		pos = start + int(dec.InputOffset())
	}
	return out
}

func (d *Document) collect(src string) {
	for k, v := range collect(src) {
		d.globals[k] = v
	}
}

// Take returns the JSON assigned to window.name and forgets it, so a value
// is consumed at most once. ok is false when there is no such global or it
// was already taken.
func (d *Document) Take(name string) (raw json.RawMessage, ok bool, err error) {
	return d.lookup(name, true)
}

// Peek is Take without consuming the value.
func (d *Document) Peek(name string) (raw json.RawMessage, ok bool, err error) {
	return d.lookup(name, false)
}

func (d *Document) lookup(name string, consume bool) (json.RawMessage, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.globals[name]
	if !ok {
		return nil, false, nil
	}
	if consume {
		delete(d.globals, name)
	}
	if g.err != nil {
		return nil, true, g.err
	}
	return g.raw, true, nil
}

// GetElementByID returns the first element with the id, or nil.
func (d *Document) GetElementByID(id string) *html.Node {
	var found *html.Node
	walk(d.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrValue(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) (string, error) {
	if n == nil {
		return "", errors.New("client: nil node")
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// walk visits nodes depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
