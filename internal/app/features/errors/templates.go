package errors

import (
	"embed"
	"html/template"
)

//go:embed templates/*.gohtml
var FS embed.FS

var pageTmpl = template.Must(template.ParseFS(FS, "templates/error.gohtml"))

type page struct {
	Status  int
	Title   string
	Message string
}
