// Package client boots the application on a server-rendered page: it takes
// the preloaded state, builds the history and store, and hydrates the
// component tree onto the existing #app markup.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/stratassr/internal/app/system/appstate"
	"github.com/dalemusser/stratassr/internal/app/system/history"
	"github.com/dalemusser/stratassr/internal/app/system/hydrate"
	"github.com/dalemusser/stratassr/internal/app/system/query"
	"github.com/dalemusser/stratassr/internal/app/system/storeconfig"
	"github.com/dalemusser/stratassr/internal/app/system/view"
	"github.com/dalemusser/stratassr/internal/app/ui"
	"go.uber.org/zap"
)

// Globals and element the server page provides.
const (
	PreloadKey    = "__PRELOADEDSTATE__"
	QueryStateKey = "__APOLLO_STATE__"
	MountID       = "app"
)

var ErrMountNotFound = errors.New("client: mount element #" + MountID + " not found")

// Options configure Bootstrap. Only URL is required.
type Options struct {
	URL       string
	Factory   storeconfig.Factory // nil selects by NODE_ENV
	Component ui.Component        // nil means ui.App
	Logger    *zap.Logger
}

// App is a running client.
type App struct {
	History history.History
	Store   *appstate.Store
	Client  *query.Client
	Root    *hydrate.Root

	bundle    *storeconfig.Bundle
	component ui.Component
	logger    *zap.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// Bootstrap starts the client on doc.
func Bootstrap(doc *Document, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := opts.Factory
	if factory == nil {
		factory = storeconfig.FromEnv(storeconfig.Deps{Logger: logger})
	}
	component := opts.Component
	if component == nil {
		component = ui.App
	}

	h, err := history.NewBrowser(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("client: history: %w", err)
	}

	// Nothing is consumed until the mount and both globals check out, so a
	// failed bootstrap leaves the document as it found it.
	mount := doc.GetElementByID(MountID)
	if mount == nil {
		return nil, ErrMountNotFound
	}
	preload, err := readPreload(doc)
	if err != nil {
		return nil, err
	}
	snapshot, err := readQueryCache(doc)
	if err != nil {
		return nil, err
	}
	doc.Take(PreloadKey)
	doc.Take(QueryStateKey)

	bundle, err := factory.Configure(h, preload)
	if err != nil {
		return nil, fmt.Errorf("client: configure store: %w", err)
	}
	bundle.Client.Restore(snapshot)

	a := &App{
		History:   h,
		Store:     bundle.Store,
		Client:    bundle.Client,
		bundle:    bundle,
		component: component,
		logger:    logger,
	}
	root, err := hydrate.Hydrate(mount, a.tree(), hydrate.Options{
		Logger:         logger,
		WarnMismatches: bundle.Mode == storeconfig.Development,
	})
	if err != nil {
		bundle.Close()
		return nil, fmt.Errorf("client: hydrate: %w", err)
	}
	a.Root = root
	a.unsubscribe = bundle.Store.Subscribe(a.rerender)

	logger.Debug("client started",
		zap.String("url", opts.URL),
		zap.String("store_mode", bundle.Mode.String()),
		zap.Bool("preloaded", preload != nil),
		zap.Int("hydration_mismatches", len(root.Mismatches())))
	return a, nil
}

func readPreload(doc *Document) (appstate.State, error) {
	raw, ok, err := doc.Peek(PreloadKey)
	if err != nil {
		return nil, fmt.Errorf("client: preloaded state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	s, err := appstate.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("client: preloaded state: %w", err)
	}
	return s, nil
}

func readQueryCache(doc *Document) (map[string]json.RawMessage, error) {
	raw, ok, err := doc.Peek(QueryStateKey)
	if err != nil {
		return nil, fmt.Errorf("client: query cache: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("client: query cache: %w", err)
	}
	return snapshot, nil
}

func (a *App) tree() *view.Node {
	return a.component(a.Store.GetState(), a.Store.Dispatch)
}

func (a *App) rerender() {
	if err := a.Root.Update(a.tree()); err != nil {
		a.logger.Error("re-render failed", zap.Error(err))
	}
}

// Dispatch delivers a DOM event to the element with the hydration id.
func (a *App) Dispatch(hid string, ev view.Event) error {
	return a.Root.Dispatch(hid, ev)
}

// Close stops re-rendering and detaches the store from the history.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.bundle.Close()
}
