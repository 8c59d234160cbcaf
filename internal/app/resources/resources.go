// Package resources embeds the HTML document shell and the static assets the
// server ships alongside the bundler output.
package resources

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

//go:embed assets/css/*.css
var assetsFS embed.FS

var documentTmpl = template.Must(template.ParseFS(templatesFS, "templates/document.gohtml"))

// Document is the data for the page shell. Markup is the server-rendered
// component tree. State and QueryState must be JSON produced by
// encoding/json, which escapes the characters that could end the script.
type Document struct {
	Title      string
	Markup     template.HTML
	State      template.JS
	QueryState template.JS
	Styles     template.HTML
	Scripts    template.HTML
}

// RenderDocument writes the full HTML page.
func RenderDocument(w io.Writer, d Document) error {
	if d.State == "" {
		d.State = "null"
	}
	if d.QueryState == "" {
		d.QueryState = "{}"
	}
	return documentTmpl.Execute(w, d)
}

// Assets returns the embedded assets filesystem.
func Assets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("failed to get assets subdirectory: " + err.Error())
	}
	return sub
}

// AssetsHandler returns an http.Handler that serves embedded assets.
// The prefix is stripped from the request path before looking up files.
func AssetsHandler(prefix string) http.Handler {
	fileServer := http.FileServer(http.FS(Assets()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, prefix)
		path = strings.TrimPrefix(path, "/")

		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + path
		fileServer.ServeHTTP(w, r2)
	})
}
