// Package storeconfig chooses how the application store is built.
//
// Two factories exist. The development factory adds action logging, a
// reducer mutation check and hot reducer replacement; the production factory
// installs only the router middleware. Which one is used is decided once per
// process: either explicitly with Select, or from NODE_ENV with FromEnv.
// Anything other than NODE_ENV=production selects development.
package storeconfig

import (
	"errors"
	"os"
	"sync"

	"github.com/dalemusser/stratassr/internal/app/system/appstate"
	"github.com/dalemusser/stratassr/internal/app/system/history"
	"github.com/dalemusser/stratassr/internal/app/system/query"
	"go.uber.org/zap"
)

// Mode selects a store factory.
type Mode int

const (
	Development Mode = iota
	Production
)

func (m Mode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}

// ParseMode maps a NODE_ENV value to a Mode. Only "production" selects
// Production; empty and unrecognised values select Development.
func ParseMode(nodeEnv string) Mode {
	if nodeEnv == "production" {
		return Production
	}
	return Development
}

var (
	envOnce sync.Once
	envMode Mode
)

// ModeFromEnv reads NODE_ENV the first time it is called and returns the
// same Mode for the rest of the process.
func ModeFromEnv() Mode {
	envOnce.Do(func() {
		envMode = ParseMode(os.Getenv("NODE_ENV"))
	})
	return envMode
}

var (
	ErrNoHistory         = errors.New("storeconfig: history is required")
	ErrHotReloadDisabled = errors.New("storeconfig: hot reload is only available in development")
)

// Bundle is what the component tree consumes: the store, the data-fetching
// client and the history both are wired to.
type Bundle struct {
	Mode    Mode
	Store   *appstate.Store
	Client  *query.Client
	History history.History

	hot      bool
	unlisten func()
}

// HotReload replaces the store's reducer, keeping the current state.
func (b *Bundle) HotReload(r appstate.Reducer) error {
	if !b.hot {
		return ErrHotReloadDisabled
	}
	return b.Store.ReplaceReducer(r)
}

// Close detaches the store from the history.
func (b *Bundle) Close() {
	if b.unlisten != nil {
		b.unlisten()
		b.unlisten = nil
	}
}

// Factory builds a Bundle around a history and an optional preloaded state.
type Factory interface {
	Mode() Mode
	Configure(h history.History, preload appstate.State) (*Bundle, error)
}

// Deps are shared by every Bundle a factory builds.
type Deps struct {
	Logger  *zap.Logger
	Client  *query.Client    // forked per bundle; nil means a cache-only client
	Reducer appstate.Reducer // nil means appstate.RootReducer()
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Client == nil {
		d.Client = query.New(query.Options{Logger: d.Logger})
	}
	if d.Reducer == nil {
		d.Reducer = appstate.RootReducer()
	}
	return d
}

// Select returns the factory for mode.
func Select(mode Mode, deps Deps) Factory {
	if mode == Production {
		return NewProduction(deps)
	}
	return NewDevelopment(deps)
}

// FromEnv returns the factory chosen by NODE_ENV (see ModeFromEnv).
func FromEnv(deps Deps) Factory {
	return Select(ModeFromEnv(), deps)
}

type developmentFactory struct{ deps Deps }

// NewDevelopment returns the development factory.
func NewDevelopment(deps Deps) Factory {
	return developmentFactory{deps: deps.withDefaults()}
}

func (f developmentFactory) Mode() Mode { return Development }

func (f developmentFactory) Configure(h history.History, preload appstate.State) (*Bundle, error) {
	if h == nil {
		return nil, ErrNoHistory
	}
	logger := f.deps.Logger.With(zap.String("store_mode", Development.String()))
	store := appstate.New(f.deps.Reducer, preload,
		appstate.WithMiddleware(
			appstate.LoggerMiddleware(logger),
			appstate.RouterMiddleware(h),
		),
		appstate.WithMutationCheck(),
	)
	logger.Debug("store configured",
		zap.String("store_id", store.ID()),
		zap.Bool("preloaded", preload != nil),
		zap.String("location", h.Location().Path()))

	return &Bundle{
		Mode:     Development,
		Store:    store,
		Client:   f.deps.Client.Fork(),
		History:  h,
		hot:      true,
		unlisten: appstate.SyncHistory(store, h),
	}, nil
}

type productionFactory struct{ deps Deps }

// NewProduction returns the production factory.
func NewProduction(deps Deps) Factory {
	return productionFactory{deps: deps.withDefaults()}
}

func (f productionFactory) Mode() Mode { return Production }

func (f productionFactory) Configure(h history.History, preload appstate.State) (*Bundle, error) {
	if h == nil {
		return nil, ErrNoHistory
	}
	store := appstate.New(f.deps.Reducer, preload,
		appstate.WithMiddleware(appstate.RouterMiddleware(h)),
	)
	return &Bundle{
		Mode:     Production,
		Store:    store,
		Client:   f.deps.Client.Fork(),
		History:  h,
		unlisten: appstate.SyncHistory(store, h),
	}, nil
}
