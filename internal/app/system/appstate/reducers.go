package appstate

// Slice keys of the root state.
const (
	KeyRouter  = "router"
	KeyPage    = "page"
	KeySession = "session"
	KeyUI      = "ui"
)

// Action types handled by the root reducer.
const (
	ActionLocationChange = "router/LOCATION_CHANGE"
	ActionCallHistory    = "router/CALL_HISTORY"
	ActionPageLoaded     = "page/LOADED"
	ActionPageNotFound   = "page/NOT_FOUND"
	ActionSessionSet     = "session/SET"
	ActionMenuToggle     = "ui/MENU_TOGGLE"
)

// RootReducer combines the application's slices.
func RootReducer() Reducer {
	return Combine(map[string]SliceReducer{
		KeyRouter:  routerReducer,
		KeyPage:    pageReducer,
		KeySession: sessionReducer,
		KeyUI:      uiReducer,
	})
}

// DefaultState is the state a store starts from without preloaded state.
func DefaultState() State {
	return New(RootReducer(), nil).GetState()
}

func defaultLocation() map[string]any {
	return map[string]any{"pathname": "/", "search": "", "hash": ""}
}

func routerReducer(slice any, a Action) any {
	cur, ok := slice.(map[string]any)
	if !ok {
		cur = map[string]any{"location": defaultLocation(), "action": "POP"}
	}
	if a.Type != ActionLocationChange {
		return cur
	}
	p, ok := a.Payload.(map[string]any)
	if !ok {
		return cur
	}
	return map[string]any{"location": p["location"], "action": p["action"]}
}

func pageReducer(slice any, a Action) any {
	cur, ok := slice.(map[string]any)
	if !ok {
		cur = map[string]any{"slug": "", "title": "", "content": "", "found": false}
	}
	switch a.Type {
	case ActionPageLoaded:
		p, ok := a.Payload.(map[string]any)
		if !ok {
			return cur
		}
		return map[string]any{
			"slug":    p["slug"],
			"title":   p["title"],
			"content": p["content"],
			"found":   true,
		}
	case ActionPageNotFound:
		slug, _ := a.Payload.(string)
		return map[string]any{"slug": slug, "title": "Not Found", "content": "", "found": false}
	}
	return cur
}

func sessionReducer(slice any, a Action) any {
	cur, ok := slice.(map[string]any)
	if !ok {
		cur = map[string]any{"csrf_token": "", "visitor_id": ""}
	}
	if a.Type != ActionSessionSet {
		return cur
	}
	p, ok := a.Payload.(map[string]any)
	if !ok {
		return cur
	}
	next := make(map[string]any, len(cur))
	for k, v := range cur {
		next[k] = v
	}
	for k, v := range p {
		next[k] = v
	}
	return next
}

func uiReducer(slice any, a Action) any {
	cur, ok := slice.(map[string]any)
	if !ok {
		cur = map[string]any{"menu_open": false}
	}
	if a.Type != ActionMenuToggle {
		return cur
	}
	open, _ := cur["menu_open"].(bool)
	next := make(map[string]any, len(cur))
	for k, v := range cur {
		next[k] = v
	}
	next["menu_open"] = !open
	return next
}
