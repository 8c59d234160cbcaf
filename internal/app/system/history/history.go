// Package history tracks navigation for one rendering session: a stack of
// locations with a cursor, plus listeners notified on every transition.
//
// A server render uses a history positioned at the request URL; client
// bootstrap creates a fresh one positioned at the document URL. In both
// cases the history is owned by whoever created it and handed by reference
// to the store and the component tree.
package history

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Action describes how the current location was reached.
type Action string

const (
	Push    Action = "PUSH"
	Replace Action = "REPLACE"
	Pop     Action = "POP"
)

// Location is one history entry.
type Location struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
	Key      string `json:"key,omitempty"`
	State    any    `json:"state,omitempty"`
}

// Path returns the location as a path with query and fragment.
func (l Location) Path() string {
	return l.Pathname + l.Search + l.Hash
}

// Listener is called after every transition.
type Listener func(loc Location, action Action)

// History is the navigation abstraction shared by the store and the tree.
type History interface {
	Location() Location
	Action() Action
	Length() int
	Push(path string, state any) error
	Replace(path string, state any) error
	Go(n int)
	Back()
	Forward()
	Listen(fn Listener) (unlisten func())
}

// ParsePath splits a path such as "/a/b?x=1#top" into a Location without a key.
func ParsePath(path string) (Location, error) {
	if path == "" {
		path = "/"
	}
	u, err := url.Parse(path)
	if err != nil {
		return Location{}, fmt.Errorf("parse path %q: %w", path, err)
	}
	loc := Location{Pathname: u.EscapedPath()}
	if loc.Pathname == "" {
		loc.Pathname = "/"
	} else if !strings.HasPrefix(loc.Pathname, "/") {
		loc.Pathname = "/" + loc.Pathname
	}
	if u.RawQuery != "" {
		loc.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		loc.Hash = "#" + u.EscapedFragment()
	}
	return loc, nil
}

// Memory is an in-memory History. It is safe for concurrent use; listeners
// are invoked without the lock held.
type Memory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	action    Action
	listeners map[int]Listener
	nextID    int
}

// NewMemory creates a history with the given entries, positioned at index.
// With no entries it starts at "/".
func NewMemory(paths []string, index int) (*Memory, error) {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	h := &Memory{action: Pop, listeners: make(map[int]Listener)}
	for _, p := range paths {
		loc, err := ParsePath(p)
		if err != nil {
			return nil, err
		}
		loc.Key = newKey()
		h.entries = append(h.entries, loc)
	}
	h.index = clamp(index, 0, len(h.entries)-1)
	return h, nil
}

// NewBrowser creates a fresh session history positioned at rawURL, the way a
// browser starts a session on page load. Scheme and host are ignored.
func NewBrowser(rawURL string) (*Memory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		path += "#" + u.EscapedFragment()
	}
	return NewMemory([]string{path}, 0)
}

func newKey() string {
	return uuid.NewString()[:8]
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Location returns the current entry.
func (h *Memory) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Action returns how the current entry was reached.
func (h *Memory) Action() Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.action
}

// Length returns the number of entries.
func (h *Memory) Length() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the entries and the current index.
func (h *Memory) Entries() ([]Location, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Location, len(h.entries))
	copy(out, h.entries)
	return out, h.index
}

// Push adds a new entry after the current one, dropping any forward entries.
func (h *Memory) Push(path string, state any) error {
	loc, err := h.resolve(path, state)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], loc)
	h.index = len(h.entries) - 1
	h.action = Push
	h.mu.Unlock()

	h.notify(loc, Push)
	return nil
}

// Replace overwrites the current entry.
func (h *Memory) Replace(path string, state any) error {
	loc, err := h.resolve(path, state)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.entries[h.index] = loc
	h.action = Replace
	h.mu.Unlock()

	h.notify(loc, Replace)
	return nil
}

// resolve parses path, treating a bare query or fragment as relative to the
// current pathname.
func (h *Memory) resolve(path string, state any) (Location, error) {
	if strings.HasPrefix(path, "?") || strings.HasPrefix(path, "#") {
		cur := h.Location()
		if strings.HasPrefix(path, "#") {
			path = cur.Pathname + cur.Search + path
		} else {
			path = cur.Pathname + path
		}
	}
	loc, err := ParsePath(path)
	if err != nil {
		return Location{}, err
	}
	loc.Key = newKey()
	loc.State = state
	return loc, nil
}

// Go moves the cursor by n entries. Moves past either end are ignored.
func (h *Memory) Go(n int) {
	h.mu.Lock()
	next := h.index + n
	if n == 0 || next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return
	}
	h.index = next
	h.action = Pop
	loc := h.entries[next]
	h.mu.Unlock()

	h.notify(loc, Pop)
}

// Back is Go(-1).
func (h *Memory) Back() { h.Go(-1) }

// Forward is Go(1).
func (h *Memory) Forward() { h.Go(1) }

// Listen registers fn and returns a function that removes it.
func (h *Memory) Listen(fn Listener) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *Memory) notify(loc Location, action Action) {
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(loc, action)
	}
}
