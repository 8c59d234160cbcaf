// Package render serves every application path by rendering the component
// tree on the server. The page for the path is loaded from MongoDB, the
// store is seeded with the location, page and session, and the resulting
// markup is written into the document shell with the preloaded state the
// client bootstrap takes over.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	errorsfeature "github.com/dalemusser/stratassr/internal/app/features/errors"
	"github.com/dalemusser/stratassr/internal/app/resources"
	pagestore "github.com/dalemusser/stratassr/internal/app/store/pages"
	"github.com/dalemusser/stratassr/internal/app/system/appstate"
	"github.com/dalemusser/stratassr/internal/app/system/assets"
	"github.com/dalemusser/stratassr/internal/app/system/history"
	"github.com/dalemusser/stratassr/internal/app/system/storeconfig"
	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"github.com/dalemusser/stratassr/internal/app/system/view"
	"github.com/dalemusser/stratassr/internal/app/system/visitor"
	"github.com/dalemusser/stratassr/internal/app/ui"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler renders pages.
type Handler struct {
	pages     *pagestore.Store
	factory   storeconfig.Factory
	assets    assets.Config
	component ui.Component
	errPages  *errorsfeature.Handler
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// NewHandler creates a render Handler. The factory decides which store
// middleware each render runs with.
func NewHandler(db *mongo.Database, factory storeconfig.Factory, cfg assets.Config, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		pages:     pagestore.New(db),
		factory:   factory,
		assets:    cfg,
		component: ui.App,
		errPages:  errorsfeature.NewHandler(logger),
		errLog:    errLog,
		logger:    logger,
	}
}

// Routes mounts the catch-all page route.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.ServePage)
	return r
}

// Result is one finished render.
type Result struct {
	Status int
	Title  string
	State  appstate.State
	Markup string
	Query  map[string]json.RawMessage
}

// ServePage renders the page for the request path.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	res, err := h.Render(r.Context(), r.URL.RequestURI(), sessionFields(r))
	if err != nil {
		h.errLog.Log(r, "server render failed", err)
		h.errPages.InternalError(w, r)
		return
	}

	var buf bytes.Buffer
	if err := h.writeDocument(&buf, res); err != nil {
		h.errLog.Log(r, "document render failed", err)
		h.errPages.InternalError(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(res.Status)
	_, _ = buf.WriteTo(w)
}

// Render builds the store for uri, loads its page and renders the tree.
// Unknown slugs render the not-found page with status 404.
func (h *Handler) Render(ctx context.Context, uri string, session map[string]any) (Result, error) {
	hist, err := history.NewBrowser(uri)
	if err != nil {
		return Result{}, fmt.Errorf("history: %w", err)
	}
	bundle, err := h.factory.Configure(hist, nil)
	if err != nil {
		return Result{}, fmt.Errorf("configure store: %w", err)
	}
	defer bundle.Close()
	store := bundle.Store

	loc := hist.Location()
	slug := ui.SlugForPath(loc.Pathname)
	res := Result{Status: http.StatusOK}

	actions := []appstate.Action{appstate.LocationChanged(loc, hist.Action())}

	loadCtx, cancel := context.WithTimeout(ctx, timeouts.Render())
	page, err := h.pages.GetBySlug(loadCtx, slug)
	cancel()
	switch {
	case errors.Is(err, pagestore.ErrNotFound):
		res.Status = http.StatusNotFound
		res.Title = "Not Found"
		actions = append(actions, appstate.PageNotFound(slug))
	case err != nil:
		return Result{}, fmt.Errorf("load page %q: %w", slug, err)
	default:
		res.Title = page.Title
		actions = append(actions, appstate.PageLoaded(page.Slug, page.Title, page.Content))
	}
	if len(session) > 0 {
		actions = append(actions, appstate.SessionSet(session))
	}

	for _, a := range actions {
		if err := store.Dispatch(a); err != nil {
			return Result{}, fmt.Errorf("dispatch %s: %w", a.Type, err)
		}
	}

	res.State = store.GetState()
	res.Markup, err = view.RenderString(h.component(res.State, store.Dispatch))
	if err != nil {
		return Result{}, fmt.Errorf("render tree: %w", err)
	}
	res.Query = bundle.Client.Extract()

	h.logger.Debug("page rendered",
		zap.String("slug", slug),
		zap.Int("status", res.Status),
		zap.String("store_mode", bundle.Mode.String()))
	return res, nil
}

func (h *Handler) writeDocument(buf *bytes.Buffer, res Result) error {
	state, err := appstate.Encode(res.State)
	if err != nil {
		return err
	}
	query, err := json.Marshal(res.Query)
	if err != nil {
		return fmt.Errorf("encode query cache: %w", err)
	}
	return resources.RenderDocument(buf, resources.Document{
		Title:      res.Title,
		Markup:     template.HTML(res.Markup),
		State:      template.JS(state),
		QueryState: template.JS(query),
		Styles:     h.assets.StyleTags(),
		Scripts:    h.assets.ScriptTags(),
	})
}

// sessionFields collects the per-visitor values the client needs.
func sessionFields(r *http.Request) map[string]any {
	fields := map[string]any{}
	if tok := csrf.Token(r); tok != "" {
		fields["csrf_token"] = tok
	}
	if id := visitor.ID(r); id != "" {
		fields["visitor_id"] = id
	}
	return fields
}
