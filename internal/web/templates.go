package web

import (
	"html/template"
)

const layout = `{{define "docs.html"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>gridlink {{.CurrentVersion}} - {{if .CurrentDoc}}{{.CurrentDoc}}{{else}}docs{{end}}</title>
</head>
<body>
<nav>
{{range .DocList}}<a href="/docs/{{.}}">{{.}}</a>
{{end}}</nav>
<main id="content-area">
{{.DocContent}}
</main>
<footer>gridlink {{.CurrentVersion}} ({{.BuildTime}})</footer>
</body>
</html>{{end}}`

// TemplateData holds the data passed to the page templates.
type TemplateData struct {
	CurrentVersion string
	BuildTime      string
	DocList        []string
	DocContent     template.HTML
	CurrentDoc     string
}

// parseTemplates parses the page templates compiled into the binary.
func parseTemplates() (*template.Template, error) {
	return template.New("pages").Parse(layout)
}
