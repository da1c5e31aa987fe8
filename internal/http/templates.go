// Package httpapi – embedded HTML templates.
//
// Templates are compiled into the binary so deployments are a single file
// plus the data directories.
package httpapi

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// templateFuncs holds the few helpers the templates need (pager arithmetic).
var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// loadTemplates parses the embedded template set. It panics on malformed
// templates, which is a build-time defect rather than a runtime condition.
func loadTemplates() *template.Template {
	return template.Must(
		template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html"),
	)
}
