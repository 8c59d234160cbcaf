// Package appstate is the application state container: a single state tree
// changed only by dispatching actions through a reducer, with optional
// middleware around dispatch.
package appstate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// State is the JSON-shaped state tree. Values are maps, slices, strings,
// float64, bool or nil, the same shapes encoding/json produces.
type State map[string]any

// Action describes a change. Type is required.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Built-in action types.
const (
	ActionInit    = "@@appstate/INIT"
	ActionReplace = "@@appstate/REPLACE"
)

// Reducer computes the next state. It must not modify s.
type Reducer func(s State, a Action) State

// DispatchFunc sends an action through the store.
type DispatchFunc func(a Action) error

// MiddlewareAPI is the view of the store given to middleware.
type MiddlewareAPI interface {
	GetState() State
	Dispatch(a Action) error
}

// Middleware wraps dispatch.
type Middleware func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc

var (
	ErrMissingType  = errors.New("appstate: action has no type")
	ErrStateMutated = errors.New("appstate: reducer mutated the previous state")
)

// Option configures a Store.
type Option func(*Store)

// WithMiddleware installs middleware. The first one sees actions first.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, mws...)
	}
}

// WithMutationCheck makes every dispatch verify that the reducer left the
// previous state untouched. It deep-copies the state per action.
func WithMutationCheck() Option {
	return func(s *Store) {
		s.checkMutations = true
	}
}

// Store holds the state tree.
type Store struct {
	id             string
	middleware     []Middleware
	checkMutations bool

	mu        sync.Mutex
	reducer   Reducer
	state     State
	listeners map[int]func()
	nextID    int

	dispatch DispatchFunc
}

// New creates a store. When preloaded is nil the reducer builds the default
// state; otherwise the reducer starts from a copy of preloaded.
func New(reducer Reducer, preloaded State, opts ...Option) *Store {
	s := &Store{
		id:        uuid.NewString(),
		reducer:   reducer,
		state:     Clone(preloaded),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatch = s.baseDispatch
	d := DispatchFunc(s.baseDispatch)
	api := storeAPI{s}
	for i := len(s.middleware) - 1; i >= 0; i-- {
		d = s.middleware[i](api)(d)
	}
	s.dispatch = d

	// The initial action is not seen by middleware. Reducers have no way to
	// fail it, so the error is always nil here.
	_ = s.baseDispatch(Action{Type: ActionInit})
	return s
}

type storeAPI struct{ s *Store }

func (a storeAPI) GetState() State { return a.s.GetState() }
func (a storeAPI) Dispatch(act Action) error { return a.s.Dispatch(act) }

// ID identifies this store instance in logs.
func (s *Store) ID() string { return s.id }

// GetState returns a deep copy of the current state.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.state)
}

// Dispatch sends a through the middleware chain to the reducer.
func (s *Store) Dispatch(a Action) error {
	return s.dispatch(a)
}

func (s *Store) baseDispatch(a Action) error {
	if a.Type == "" {
		return ErrMissingType
	}
	listeners, err := s.reduce(a)
	if err != nil {
		return err
	}
	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (s *Store) reduce(a Action) ([]func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	var before State
	if s.checkMutations {
		before = Clone(prev)
	}

	next := s.reducer(prev, a)

	if s.checkMutations && !reflect.DeepEqual(before, prev) {
		s.state = before
		return nil, fmt.Errorf("%w (action %s)", ErrStateMutated, a.Type)
	}
	s.state = next

	fns := make([]func(), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns, nil
}

// Subscribe registers fn to run after every dispatch.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ReplaceReducer swaps the reducer and lets it reconcile the current state.
func (s *Store) ReplaceReducer(r Reducer) error {
	s.mu.Lock()
	s.reducer = r
	s.mu.Unlock()
	return s.baseDispatch(Action{Type: ActionReplace})
}

// SliceReducer reduces one top-level key. It receives nil when the key is absent.
type SliceReducer func(slice any, a Action) any

// Combine builds a reducer that delegates each key to its slice reducer.
// Keys without a slice reducer are carried over unchanged.
func Combine(slices map[string]SliceReducer) Reducer {
	keys := make([]string, 0, len(slices))
	for k := range slices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return func(s State, a Action) State {
		next := make(State, len(s)+len(keys))
		for k, v := range s {
			next[k] = v
		}
		for _, k := range keys {
			next[k] = slices[k](s[k], a)
		}
		return next
	}
}
