package site

import (
	"encoding/xml"
	"fmt"

	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// renderSitemap renders sitemap.xml covering the home page and every post.
// A post's last-modified date comes from git history when available,
// otherwise its publication date.
func renderSitemap(site config.SiteConfig, posts []content.Post) ([]byte, error) {
	urls := []sitemapURL{
		{Loc: buildURL(site.BaseURL) + "/"},
	}
	for _, p := range posts {
		lastMod := p.Date
		if !p.LastModified.IsZero() {
			lastMod = p.LastModified
		}
		urls = append(urls, sitemapURL{
			Loc:     buildURL(site.BaseURL, "blog", p.Slug) + "/",
			LastMod: lastMod.Format("2006-01-02"),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	out, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
