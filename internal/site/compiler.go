package site

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strings"

	gmutil "github.com/yuin/goldmark/util"

	"github.com/tverberg/blogsmith/internal/components"
	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/content"
	berrors "github.com/tverberg/blogsmith/internal/errors"
	"github.com/tverberg/blogsmith/internal/images"
	"github.com/tverberg/blogsmith/internal/logfields"
	"github.com/tverberg/blogsmith/internal/markdown"
)

// Page is one compiled post page ready to be written into the staging dir.
type Page struct {
	Slug    string
	Title   string
	RelPath string   // output path relative to the site root, e.g. blog/hello/index.html
	HTML    []byte   // full document
	Assets  []string // site-relative asset paths the page references
}

// Compiler turns extracted posts into complete HTML pages: markdown
// rendering, component-reference resolution, and responsive image rewriting.
type Compiler struct {
	site     config.SiteConfig
	registry *components.Registry
	mdOpts   markdown.Options
}

// NewCompiler creates a page compiler bound to a component registry.
func NewCompiler(site config.SiteConfig, registry *components.Registry) *Compiler {
	return &Compiler{site: site, registry: registry}
}

// Compile builds the page for one post. All component references are
// resolved before any rendering happens, so a bad reference fails the post
// without producing partial output. imgs maps canonical content-relative
// source paths to processed image results; references without a result keep
// their original src.
func (c *Compiler) Compile(post content.Post, imgs map[string]images.Result) (Page, error) {
	mounts, err := c.resolveComponents(post)
	if err != nil {
		return Page{}, err
	}

	rendered, err := markdown.Render(post.Body, c.mdOpts)
	if err != nil {
		return Page{}, berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal,
			fmt.Sprintf("render %s", post.RelPath))
	}

	body := string(rendered)
	for raw, mount := range mounts {
		body = strings.ReplaceAll(body, raw, mount)
	}

	var assets []string
	body, assets = c.rewriteImages(post, body, imgs)

	doc, err := c.renderLayout(post, body)
	if err != nil {
		return Page{}, berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal,
			fmt.Sprintf("layout %s", post.RelPath))
	}

	return Page{
		Slug:    post.Slug,
		Title:   post.Title,
		RelPath: path.Join("blog", post.Slug, "index.html"),
		HTML:    doc,
		Assets:  assets,
	}, nil
}

// resolveComponents validates every component reference in the post body and
// returns the raw-tag to mount-markup substitutions.
func (c *Compiler) resolveComponents(post content.Post) (map[string]string, error) {
	mounts := map[string]string{}
	for _, ref := range markdown.ExtractComponentRefs(post.Body) {
		if _, known := c.registry.Lookup(ref.Name); !known {
			return nil, berrors.UnknownReferenceError(post.RelPath, ref.Name)
		}
		resolved, err := c.registry.Resolve(ref)
		if err != nil {
			return nil, berrors.Wrap(err, berrors.CategoryReference, berrors.SeverityFatal,
				fmt.Sprintf("resolve component in %s", post.RelPath)).WithContext("file", post.RelPath)
		}
		mount, err := resolved.MountHTML()
		if err != nil {
			return nil, berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal,
				fmt.Sprintf("mount component in %s", post.RelPath))
		}
		mounts[ref.Raw] = mount
		slog.Debug("Component resolved",
			logfields.Component(ref.Name), logfields.File(post.RelPath))
	}
	return mounts, nil
}

// rewriteImages swaps original img sources for the primary generated variant
// and attaches a srcset. Sources without a processing result (external URLs,
// failed assets) are left untouched.
func (c *Compiler) rewriteImages(post content.Post, body string, imgs map[string]images.Result) (string, []string) {
	var assets []string
	for _, ref := range markdown.ExtractImageRefs(post.Body) {
		canonical, ok := resolveImageRef(post.RelPath, ref.Destination)
		if !ok {
			continue
		}
		res, found := imgs[canonical]
		if !found {
			continue
		}
		primary, ok := res.Primary()
		if !ok {
			continue
		}

		// The rendered attribute carries the destination URL-escaped and
		// entity-escaped, so match that form rather than the raw reference.
		rendered := gmutil.EscapeHTML(gmutil.URLEscape([]byte(ref.Destination), true))
		orig := fmt.Sprintf(`src="%s"`, rendered)
		repl := fmt.Sprintf(`src="/%s"`, primary.Path)
		if srcset := res.Srcset(); srcset != "" {
			repl += fmt.Sprintf(` srcset="%s" sizes="(max-width: %dpx) 100vw, %dpx"`,
				srcset, primary.ActualWidth, primary.ActualWidth)
		}
		repl += ` loading="lazy"`
		body = strings.ReplaceAll(body, orig, repl)

		for _, v := range res.Variants {
			assets = append(assets, v.Path)
		}
	}
	return body, assets
}

func (c *Compiler) renderLayout(post content.Post, body string) ([]byte, error) {
	data := pageData{
		Site:        c.site,
		Title:       post.Title,
		Description: post.Description,
		DateISO:     post.Date.Format("2006-01-02"),
		DateHuman:   post.Date.Format("January 2, 2006"),
		ReadingTime: post.ReadingTime,
		Tags:        post.Tags,
		Content:     template.HTML(body),
	}
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "page.html.tmpl", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
