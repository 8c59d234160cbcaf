package appstate

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratassr/internal/app/system/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const preloadJSON = `{
	"router": {"location": {"pathname": "/about", "search": "?a=1", "hash": "", "key": "k1"}, "action": "POP"},
	"page": {"slug": "about", "title": "About", "content": "<p>hi</p>", "found": true},
	"session": {"csrf_token": "tok", "visitor_id": "v-1"},
	"ui": {"menu_open": true},
	"extra": {"kept": [1, "two", null]}
}`

func TestNew_PreloadedStateIsInitialState(t *testing.T) {
	preload, err := Decode([]byte(preloadJSON))
	require.NoError(t, err)

	s := New(RootReducer(), preload)

	assert.True(t, Equal(preload, s.GetState()), "initial state should deep-equal the preloaded state")
}

func TestNew_PreloadIsCopied(t *testing.T) {
	preload, err := Decode([]byte(preloadJSON))
	require.NoError(t, err)

	s := New(RootReducer(), preload)
	preload["ui"].(map[string]any)["menu_open"] = false

	assert.Equal(t, true, s.GetState()[KeyUI].(map[string]any)["menu_open"])
}

func TestNew_WithoutPreloadUsesDefaultState(t *testing.T) {
	s := New(RootReducer(), nil)

	got := s.GetState()
	assert.True(t, Equal(DefaultState(), got))
	assert.Equal(t, "/", got[KeyRouter].(map[string]any)["location"].(map[string]any)["pathname"])
	assert.Equal(t, false, got[KeyUI].(map[string]any)["menu_open"])
}

func TestDefaultState_SurvivesSerialization(t *testing.T) {
	b, err := Encode(DefaultState())
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)

	s := New(RootReducer(), decoded)
	assert.True(t, Equal(decoded, s.GetState()))
}

func TestDispatch_UpdatesStateAndNotifies(t *testing.T) {
	s := New(RootReducer(), nil)

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	require.NoError(t, s.Dispatch(ToggleMenu()))
	require.NoError(t, s.Dispatch(PageLoaded("about", "About", "<p>x</p>")))
	unsubscribe()
	require.NoError(t, s.Dispatch(ToggleMenu()))

	assert.Equal(t, 2, calls)
	st := s.GetState()
	assert.Equal(t, false, st[KeyUI].(map[string]any)["menu_open"])
	assert.Equal(t, "About", st[KeyPage].(map[string]any)["title"])
	assert.Equal(t, true, st[KeyPage].(map[string]any)["found"])
}

func TestDispatch_RequiresType(t *testing.T) {
	s := New(RootReducer(), nil)
	assert.ErrorIs(t, s.Dispatch(Action{}), ErrMissingType)
}

func TestGetState_ReturnsCopy(t *testing.T) {
	s := New(RootReducer(), nil)
	st := s.GetState()
	st[KeyUI].(map[string]any)["menu_open"] = true

	assert.Equal(t, false, s.GetState()[KeyUI].(map[string]any)["menu_open"])
}

func TestMutationCheck(t *testing.T) {
	mutating := func(s State, a Action) State {
		if a.Type == "bad" {
			s["oops"] = true
		}
		return s
	}
	s := New(mutating, State{"ok": true}, WithMutationCheck())

	err := s.Dispatch(Action{Type: "bad"})
	assert.True(t, errors.Is(err, ErrStateMutated))
	assert.Equal(t, State{"ok": true}, s.GetState(), "state is rolled back")
}

func TestMiddlewareOrder(t *testing.T) {
	var seen []string
	mw := func(name string) Middleware {
		return func(api MiddlewareAPI) func(DispatchFunc) DispatchFunc {
			return func(next DispatchFunc) DispatchFunc {
				return func(a Action) error {
					seen = append(seen, name)
					return next(a)
				}
			}
		}
	}
	s := New(RootReducer(), nil, WithMiddleware(mw("first"), mw("second")))
	assert.Empty(t, seen, "init action bypasses middleware")

	require.NoError(t, s.Dispatch(ToggleMenu()))
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestReplaceReducer(t *testing.T) {
	s := New(RootReducer(), nil)
	require.NoError(t, s.ReplaceReducer(func(st State, a Action) State {
		next := Clone(st)
		if a.Type == ActionReplace {
			next["replaced"] = true
		}
		return next
	}))
	assert.Equal(t, true, s.GetState()["replaced"])
}

func TestRouterMiddlewareAndSync(t *testing.T) {
	h, err := history.NewMemory(nil, 0)
	require.NoError(t, err)

	s := New(RootReducer(), nil, WithMiddleware(RouterMiddleware(h)))
	unlisten := SyncHistory(s, h)
	defer unlisten()

	require.NoError(t, s.Dispatch(Push("/about?x=1")))
	assert.Equal(t, "/about", h.Location().Pathname)

	router := s.GetState()[KeyRouter].(map[string]any)
	loc := router["location"].(map[string]any)
	assert.Equal(t, "/about", loc["pathname"])
	assert.Equal(t, "?x=1", loc["search"])
	assert.Equal(t, "PUSH", router["action"])

	require.NoError(t, s.Dispatch(GoBack()))
	router = s.GetState()[KeyRouter].(map[string]any)
	assert.Equal(t, "/", router["location"].(map[string]any)["pathname"])
	assert.Equal(t, "POP", router["action"])
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := New(RootReducer(), nil, WithMiddleware(LoggerMiddleware(zap.New(core))))

	require.NoError(t, s.Dispatch(ToggleMenu()))

	entries := logs.FilterMessage("action").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, ActionMenuToggle, fields["action"])
	assert.Equal(t, []interface{}{KeyUI}, fields["changed"])
}

func TestEncode_EscapesForScript(t *testing.T) {
	b, err := Encode(State{"html": "</script><script>alert(1)</script>"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "</script>")
	assert.Contains(t, string(b), `\u003c/script\u003e`)
}
