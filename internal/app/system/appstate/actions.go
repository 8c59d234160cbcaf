package appstate

import "github.com/dalemusser/stratassr/internal/app/system/history"

// HistoryCall is the payload of ActionCallHistory.
type HistoryCall struct {
	Method string // push, replace, go
	Path   string
	State  any
	Delta  int
}

// Push asks the router middleware to push path onto the history.
func Push(path string) Action {
	return Action{Type: ActionCallHistory, Payload: HistoryCall{Method: "push", Path: path}}
}

// ReplacePath asks the router middleware to replace the current entry.
func ReplacePath(path string) Action {
	return Action{Type: ActionCallHistory, Payload: HistoryCall{Method: "replace", Path: path}}
}

// GoBack asks the router middleware to move one entry back.
func GoBack() Action {
	return Action{Type: ActionCallHistory, Payload: HistoryCall{Method: "go", Delta: -1}}
}

// LocationChanged records a history transition in the store.
func LocationChanged(loc history.Location, action history.Action) Action {
	l := map[string]any{
		"pathname": loc.Pathname,
		"search":   loc.Search,
		"hash":     loc.Hash,
	}
	if loc.Key != "" {
		l["key"] = loc.Key
	}
	return Action{Type: ActionLocationChange, Payload: map[string]any{
		"location": l,
		"action":   string(action),
	}}
}

// PageLoaded sets the current page.
func PageLoaded(slug, title, content string) Action {
	return Action{Type: ActionPageLoaded, Payload: map[string]any{
		"slug":    slug,
		"title":   title,
		"content": content,
	}}
}

// PageNotFound marks the current page as missing.
func PageNotFound(slug string) Action {
	return Action{Type: ActionPageNotFound, Payload: slug}
}

// SessionSet merges fields into the session slice.
func SessionSet(fields map[string]any) Action {
	return Action{Type: ActionSessionSet, Payload: fields}
}

// ToggleMenu flips ui.menu_open.
func ToggleMenu() Action {
	return Action{Type: ActionMenuToggle}
}
