package site

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/content"
)

// IndexEntry is one post in the machine-readable site index consumed by the
// client-side shell (search, related posts, archive views).
type IndexEntry struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Excerpt     string   `json:"excerpt"`
	ReadingTime int      `json:"readingTime"`
}

// buildIndex converts the extracted posts (already newest-first) into index
// entries, preserving order.
func buildIndex(posts []content.Post) []IndexEntry {
	entries := make([]IndexEntry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, IndexEntry{
			Slug:        p.Slug,
			Title:       p.Title,
			Date:        p.Date.Format("2006-01-02"),
			Description: p.Description,
			Tags:        p.Tags,
			Excerpt:     p.Excerpt,
			ReadingTime: p.ReadingTime,
		})
	}
	return entries
}

// marshalIndex renders the index as stable, indented JSON so diffs between
// builds stay readable.
func marshalIndex(entries []IndexEntry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	return append(data, '\n'), nil
}

// renderHome renders the home page listing from the extracted posts.
func renderHome(site config.SiteConfig, posts []content.Post) ([]byte, error) {
	views := make([]indexEntryView, 0, len(posts))
	for _, p := range posts {
		views = append(views, indexEntryView{
			Slug:      p.Slug,
			Title:     p.Title,
			DateISO:   p.Date.Format("2006-01-02"),
			DateHuman: p.Date.Format("January 2, 2006"),
			Excerpt:   p.Excerpt,
		})
	}
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "index.html.tmpl", indexData{Site: site, Posts: views}); err != nil {
		return nil, fmt.Errorf("render home page: %w", err)
	}
	return buf.Bytes(), nil
}
