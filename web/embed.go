// web/embed.go
package web

import (
	"embed"
	"html/template"
)

//go:embed static/*
var staticFiles embed.FS

var templates = template.Must(template.ParseFS(staticFiles, "static/*.html"))

// Templates returns the parsed page shells (view, password prompt, 404).
func Templates() *template.Template {
	return templates
}

func GetFile(name string) ([]byte, error) {
	return staticFiles.ReadFile("static/" + name)
}
