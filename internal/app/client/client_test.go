package client

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dalemusser/stratassr/internal/app/system/appstate"
	"github.com/dalemusser/stratassr/internal/app/system/query"
	"github.com/dalemusser/stratassr/internal/app/system/storeconfig"
	"github.com/dalemusser/stratassr/internal/app/system/view"
	"github.com/dalemusser/stratassr/internal/app/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func aboutState() appstate.State {
	s := appstate.DefaultState()
	s[appstate.KeyRouter] = map[string]any{
		"location": map[string]any{"pathname": "/about", "search": "", "hash": ""},
		"action":   "POP",
	}
	s[appstate.KeyPage] = map[string]any{"slug": "about", "title": "About", "content": "<p>About us</p>", "found": true}
	s[appstate.KeySession] = map[string]any{"csrf_token": "tok", "visitor_id": "v-1"}
	return s
}

// serverPage renders a page the way the server does.
func serverPage(t *testing.T, s appstate.State, extraScript string) string {
	t.Helper()
	markup, err := view.RenderString(ui.App(s, func(appstate.Action) error { return nil }))
	require.NoError(t, err)
	state, err := appstate.Encode(s)
	require.NoError(t, err)
	return `<!doctype html><html><head><title>x</title></head><body>` +
		`<div id="app">` + markup + `</div>` +
		`<script>window.` + PreloadKey + ` = ` + string(state) + `;` + extraScript + `</script>` +
		`<script src="/static/vendors.client.js"></script>` +
		`</body></html>`
}

func parse(t *testing.T, page string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func prodFactory() storeconfig.Factory {
	return storeconfig.NewProduction(storeconfig.Deps{})
}

func TestBootstrap_PreloadBecomesInitialState(t *testing.T) {
	want := aboutState()
	doc := parse(t, serverPage(t, want, ""))

	app, err := Bootstrap(doc, Options{URL: "http://localhost/about", Factory: prodFactory()})
	require.NoError(t, err)
	defer app.Close()

	normalized, err := appstate.Normalize(want)
	require.NoError(t, err)
	assert.True(t, appstate.Equal(normalized, app.Store.GetState()))
	assert.Empty(t, app.Root.Mismatches(), "server and client trees agree")
	assert.Equal(t, "/about", app.History.Location().Pathname)
}

func TestBootstrap_PreloadConsumedOnce(t *testing.T) {
	doc := parse(t, serverPage(t, aboutState(), ""))

	app, err := Bootstrap(doc, Options{URL: "/about", Factory: prodFactory()})
	require.NoError(t, err)
	defer app.Close()

	_, ok, err := doc.Take(PreloadKey)
	require.NoError(t, err)
	assert.False(t, ok, "preloaded state is gone after bootstrap")
}

func TestBootstrap_NoPreloadUsesDefaultState(t *testing.T) {
	doc := parse(t, `<html><body><div id="app"></div></body></html>`)

	app, err := Bootstrap(doc, Options{URL: "/", Factory: prodFactory()})
	require.NoError(t, err)
	defer app.Close()

	assert.True(t, appstate.Equal(appstate.DefaultState(), app.Store.GetState()))
}

func TestBootstrap_MissingMount(t *testing.T) {
	doc := parse(t, `<html><body><div id="root"></div></body></html>`)
	_, err := Bootstrap(doc, Options{URL: "/", Factory: prodFactory()})
	assert.ErrorIs(t, err, ErrMountNotFound)
}

func TestBootstrap_MissingMountKeepsPreload(t *testing.T) {
	page := strings.Replace(serverPage(t, aboutState(), ""), `<div id="app">`, `<div id="root">`, 1)
	doc := parse(t, page)

	_, err := Bootstrap(doc, Options{URL: "/about", Factory: prodFactory()})
	require.ErrorIs(t, err, ErrMountNotFound)

	_, ok, err := doc.Take(PreloadKey)
	require.NoError(t, err)
	assert.True(t, ok, "failed bootstrap does not consume the preload")
}

func TestBootstrap_BadQueryCacheKeepsPreload(t *testing.T) {
	doc := parse(t, serverPage(t, aboutState(), `window.`+QueryStateKey+` = [1, 2];`))

	_, err := Bootstrap(doc, Options{URL: "/about", Factory: prodFactory()})
	require.Error(t, err)

	_, ok, err := doc.Take(PreloadKey)
	require.NoError(t, err)
	assert.True(t, ok, "failed bootstrap does not consume the preload")
}

func TestBootstrap_AssignmentTextInsidePreload(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		mutate func(appstate.State)
	}{
		{
			name: "page content",
			url:  "/about",
			mutate: func(s appstate.State) {
				s[appstate.KeyPage].(map[string]any)["content"] = "<p>Set window.__PRELOADEDSTATE__=null before load</p>"
			},
		},
		{
			name: "location search",
			url:  `/about?q=window.__PRELOADEDSTATE__={"a":1}`,
			mutate: func(s appstate.State) {
				s[appstate.KeyRouter].(map[string]any)["location"].(map[string]any)["search"] = `?q=window.__PRELOADEDSTATE__={"a":1}`
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := aboutState()
			tt.mutate(want)
			doc := parse(t, serverPage(t, want, ""))

			app, err := Bootstrap(doc, Options{URL: tt.url, Factory: prodFactory()})
			require.NoError(t, err)
			defer app.Close()

			normalized, err := appstate.Normalize(want)
			require.NoError(t, err)
			assert.True(t, appstate.Equal(normalized, app.Store.GetState()))
		})
	}
}

func TestBootstrap_MalformedPreload(t *testing.T) {
	doc := parse(t, `<html><body><div id="app"></div><script>window.__PRELOADEDSTATE__ = {"router": ;</script></body></html>`)
	_, err := Bootstrap(doc, Options{URL: "/", Factory: prodFactory()})
	assert.Error(t, err)
}

func TestBootstrap_MismatchStillCompletes(t *testing.T) {
	page := serverPage(t, aboutState(), "")
	page = strings.Replace(page, `<main data-hid="0.1">`, `<section data-hid="0.1">`, 1)
	page = strings.Replace(page, `</main>`, `</section>`, 1)

	core, logs := observer.New(zap.WarnLevel)
	app, err := Bootstrap(parse(t, page), Options{
		URL:     "/about",
		Factory: storeconfig.NewDevelopment(storeconfig.Deps{}),
		Logger:  zap.New(core),
	})
	require.NoError(t, err)
	defer app.Close()

	require.NotEmpty(t, app.Root.Mismatches())
	assert.Equal(t, "0.1", app.Root.Mismatches()[0].HID)
	assert.Positive(t, logs.FilterMessage("hydration mismatch").Len())

	// The menu button outside the mismatched subtree is live.
	require.NoError(t, app.Dispatch("0.0.0", view.Event{Type: "click"}))
	assert.Equal(t, true, app.Store.GetState()[appstate.KeyUI].(map[string]any)["menu_open"])
}

func TestBootstrap_ProductionDoesNotWarn(t *testing.T) {
	page := strings.Replace(serverPage(t, aboutState(), ""), `>About us<`, `>Stale<`, 1)

	core, logs := observer.New(zap.WarnLevel)
	app, err := Bootstrap(parse(t, page), Options{URL: "/about", Factory: prodFactory(), Logger: zap.New(core)})
	require.NoError(t, err)
	defer app.Close()

	assert.Zero(t, logs.Len())
}

func TestApp_NavigationRerenders(t *testing.T) {
	doc := parse(t, serverPage(t, aboutState(), ""))
	app, err := Bootstrap(doc, Options{URL: "/about", Factory: prodFactory()})
	require.NoError(t, err)
	defer app.Close()

	// header > nav > a[2] is Contact.
	require.NoError(t, app.Dispatch("0.0.1.2", view.Event{Type: "click"}))

	assert.Equal(t, "/contact", app.History.Location().Pathname)
	inner, err := InnerHTML(app.Root.Node("0.0.1"))
	require.NoError(t, err)
	assert.Contains(t, inner, `href="/contact" class="active"`)
}

func TestBootstrap_RestoresQueryCache(t *testing.T) {
	server := query.New(query.Options{})
	server.Restore(map[string]json.RawMessage{"abc": json.RawMessage(`{"page":{"title":"About"}}`)})
	snap, err := json.Marshal(server.Extract())
	require.NoError(t, err)

	doc := parse(t, serverPage(t, aboutState(), `window.`+QueryStateKey+` = `+string(snap)+`;`))
	app, err := Bootstrap(doc, Options{URL: "/about", Factory: prodFactory()})
	require.NoError(t, err)
	defer app.Close()

	assert.Contains(t, app.Client.Extract(), "abc")
}

func TestParseDocument_Globals(t *testing.T) {
	doc := parse(t, `<html><head><script>
		window.A = {"x": [1, 2]};
		window.B = "s";window.C = oops;
	</script></head><body></body></html>`)

	raw, ok, err := doc.Take("A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":[1,2]}`, string(raw))

	raw, ok, err = doc.Take("B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"s"`, string(raw))

	_, ok, err = doc.Take("C")
	assert.True(t, ok)
	assert.Error(t, err)

	_, ok, _ = doc.Take("D")
	assert.False(t, ok)
}

func TestParseDocument_LaterAssignmentWins(t *testing.T) {
	doc := parse(t, `<html><head><script>
		window.A = {"note": "window.A = 1;"};
		window.B = 2;
	</script><script>window.A = {"x": true};</script></head><body></body></html>`)

	raw, ok, err := doc.Take("A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":true}`, string(raw))

	raw, ok, err = doc.Peek("B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(raw))
	_, ok, _ = doc.Take("B")
	assert.True(t, ok, "Peek does not consume")
}
