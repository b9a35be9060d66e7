// Package markdown wraps the goldmark engine used by the page compiler and
// provides AST-level analysis of post bodies: component references and image
// references are extracted here so the compiler can resolve them before any
// page is rendered.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

// Options configures the rendering engine.
type Options struct {
	// HighlightStyle is the chroma style name used for token classes.
	// Empty means "github".
	HighlightStyle string
}

func (o Options) style() string {
	if o.HighlightStyle == "" {
		return "github"
	}
	return o.HighlightStyle
}

// New builds the goldmark engine: GFM extensions, auto heading IDs, raw HTML
// passthrough (component tags must survive rendering), and chroma-backed
// syntax highlighting emitting CSS classes. Fence attributes like
// {title="main.go"} are wrapped into a figure with a caption.
func New(opts Options) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(opts.style()),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
				highlighting.WithWrapperRenderer(wrapCodeBlock),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// wrapCodeBlock surrounds each highlighted block with a figure carrying the
// declared language, and a caption when the fence has a title attribute.
func wrapCodeBlock(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	lang := ""
	if l, ok := c.Language(); ok {
		lang = string(l)
	}
	title := fenceTitle(c)

	if entering {
		if lang != "" {
			fmt.Fprintf(w, `<figure class="code-block" data-lang=%q>`, lang)
		} else {
			_, _ = w.WriteString(`<figure class="code-block">`)
		}
		if title != "" {
			fmt.Fprintf(w, "<figcaption>%s</figcaption>", escapeText(title))
		}
		return
	}
	_, _ = w.WriteString("</figure>")
}

func fenceTitle(c highlighting.CodeBlockContext) string {
	attrs := c.Attributes()
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get([]byte("title"))
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return ""
	}
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// Render converts a markdown body (frontmatter already removed) to HTML.
// Deterministic given the same input and options.
func Render(body []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := New(opts).Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseBody parses a markdown body into a goldmark AST without rendering.
func ParseBody(body []byte) gmast.Node {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	return md.Parser().Parse(text.NewReader(body))
}
