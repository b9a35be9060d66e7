package site

import (
	"embed"
	"html/template"

	"github.com/tverberg/blogsmith/internal/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// pageData feeds templates/page.html.tmpl.
type pageData struct {
	Site        config.SiteConfig
	Title       string
	Description string
	DateISO     string
	DateHuman   string
	ReadingTime int
	Tags        []string
	Content     template.HTML
}

// indexData feeds templates/index.html.tmpl.
type indexData struct {
	Site  config.SiteConfig
	Posts []indexEntryView
}

type indexEntryView struct {
	Slug      string
	Title     string
	DateISO   string
	DateHuman string
	Excerpt   string
}
