// Package ui holds the application's component tree. The same tree is
// rendered by the server and hydrated by the client.
package ui

import (
	"strings"

	"github.com/dalemusser/stratassr/internal/app/system/appstate"
	"github.com/dalemusser/stratassr/internal/app/system/view"
)

// Dispatch sends an action to the store.
type Dispatch func(appstate.Action) error

// Component renders state to a tree. Handlers in the tree dispatch actions.
type Component func(s appstate.State, dispatch Dispatch) *view.Node

// Link is a navigation entry.
type Link struct {
	Label string
	Path  string
}

// Nav is shown in the header; Footer in the footer.
var (
	Nav = []Link{
		{"Home", "/"},
		{"About", "/about"},
		{"Contact", "/contact"},
	}
	Footer = []Link{
		{"Terms", "/terms"},
		{"Privacy", "/privacy"},
	}
)

// SlugForPath maps a request path to a page slug. "/" is "home".
func SlugForPath(path string) string {
	slug := strings.Trim(path, "/")
	if slug == "" {
		return "home"
	}
	return strings.ToLower(slug)
}

// App is the root component.
func App(s appstate.State, dispatch Dispatch) *view.Node {
	page := slice(s, appstate.KeyPage)
	ui := slice(s, appstate.KeyUI)
	current := currentPath(s)

	navClass := "nav"
	if b, _ := ui["menu_open"].(bool); b {
		navClass = "nav nav-open"
	}

	return view.El("div", []view.Attr{view.A("class", "layout")},
		view.El("header", nil,
			view.El("button", []view.Attr{view.A("type", "button"), view.A("class", "menu-toggle")},
				view.Text("Menu"),
			).On("click", func(view.Event) error {
				return dispatch(appstate.ToggleMenu())
			}),
			links("nav", navClass, Nav, current, dispatch),
		),
		view.El("main", nil, content(page)),
		links("footer", "footer", Footer, current, dispatch),
	)
}

func content(page map[string]any) *view.Node {
	title, _ := page["title"].(string)
	body, _ := page["content"].(string)
	found, _ := page["found"].(bool)

	if !found {
		slug, _ := page["slug"].(string)
		if slug == "" {
			return view.El("article", nil, view.El("p", nil, view.Text("Loading…")))
		}
		return view.El("article", []view.Attr{view.A("class", "not-found")},
			view.El("h1", nil, view.Text("Not Found")),
			view.El("p", nil, view.Text("There is no page at /"+slug+".")),
		)
	}
	return view.El("article", nil,
		view.El("h1", nil, view.Text(title)),
		view.HTML("div", []view.Attr{view.A("class", "content")}, body),
	)
}

func links(tag, class string, items []Link, current string, dispatch Dispatch) *view.Node {
	kids := make([]*view.Node, 0, len(items))
	for _, l := range items {
		attrs := []view.Attr{view.A("href", l.Path)}
		if l.Path == current {
			attrs = append(attrs, view.A("class", "active"))
		}
		path := l.Path
		kids = append(kids, view.El("a", attrs, view.Text(l.Label)).On("click", func(view.Event) error {
			return dispatch(appstate.Push(path))
		}))
	}
	return view.El(tag, []view.Attr{view.A("class", class)}, kids...)
}

func slice(s appstate.State, key string) map[string]any {
	m, _ := s[key].(map[string]any)
	return m
}

func currentPath(s appstate.State) string {
	loc, _ := slice(s, appstate.KeyRouter)["location"].(map[string]any)
	p, _ := loc["pathname"].(string)
	return p
}
