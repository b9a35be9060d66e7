package content

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/unicode/norm"

	berrors "github.com/tverberg/blogsmith/internal/errors"
)

// Post is the fully-extracted metadata record for one content file plus its
// untouched body. Posts are immutable once built; the whole set is
// regenerated on every run.
type Post struct {
	Slug        string
	Title       string
	Date        time.Time
	Tags        []string
	Description string
	Draft       bool

	Body        []byte // raw markdown body, frontmatter removed
	Excerpt     string
	ReadingTime int // minutes, always >= 1

	SourcePath string // absolute path to the content file
	RelPath    string // path relative to the content dir

	LastModified time.Time // zero unless git info is enabled
}

// ExtractOptions tunes the derived fields.
type ExtractOptions struct {
	ExcerptLength  int // runes, <=0 means 280
	WordsPerMinute int // <=0 means 200
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.ExcerptLength <= 0 {
		o.ExcerptLength = 280
	}
	if o.WordsPerMinute <= 0 {
		o.WordsPerMinute = 200
	}
	return o
}

// Extract parses one raw content file into a Post. It is a pure transform:
// no filesystem access, no side effects. Malformed or missing required
// metadata yields a fatal content error.
func Extract(relPath string, raw []byte, opts ExtractOptions) (Post, error) {
	opts = opts.withDefaults()

	header, body, err := SplitFrontmatter(raw)
	if err != nil {
		return Post{}, berrors.ContentFormatError(relPath, err.Error())
	}

	fm, err := ParseFrontmatter(header)
	if err != nil {
		return Post{}, berrors.ContentFormatError(relPath, err.Error())
	}

	date, err := ParseDate(fm.Date)
	if err != nil {
		return Post{}, berrors.ContentFormatError(relPath, err.Error())
	}

	postSlug, err := deriveSlug(fm.Slug, relPath)
	if err != nil {
		return Post{}, berrors.ContentFormatError(relPath, err.Error())
	}

	normBody := norm.NFC.Bytes(body)

	return Post{
		Slug:        postSlug,
		Title:       fm.Title,
		Date:        date,
		Tags:        normalizeTags(fm.Tags),
		Description: fm.Description,
		Draft:       fm.Draft,
		Body:        normBody,
		Excerpt:     Excerpt(string(normBody), opts.ExcerptLength),
		ReadingTime: ReadingTime(string(normBody), opts.WordsPerMinute),
		RelPath:     relPath,
	}, nil
}

// deriveSlug prefers an explicit frontmatter slug and falls back to the
// filename stem.
func deriveSlug(explicit, relPath string) (string, error) {
	if explicit != "" {
		if !slug.IsValid(explicit) {
			return "", fmt.Errorf("invalid slug %q", explicit)
		}
		return explicit, nil
	}
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	s, err := slug.Normalize(stem)
	if err != nil {
		return "", fmt.Errorf("derive slug from %q: %w", stem, err)
	}
	if s == "" {
		return "", fmt.Errorf("cannot derive slug from %q", relPath)
	}
	return s, nil
}

// normalizeTags trims, lowercases, and de-duplicates tags preserving first
// occurrence order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

var (
	reFence        = regexp.MustCompile("(?s)```.*?```")
	reComponentTag = regexp.MustCompile(`<[A-Z][A-Za-z0-9]*(\s[^>]*)?/?>`)
	reImageRef     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reLinkRef      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reInlineMark   = regexp.MustCompile("[*_`#>]+")
)

// Excerpt returns the first maxRunes of plain text from a markdown body,
// truncated at the nearest paragraph boundary below the limit when one
// exists. Code fences, component tags, and images never contribute text.
func Excerpt(body string, maxRunes int) string {
	plain := reFence.ReplaceAllString(body, "")
	plain = reComponentTag.ReplaceAllString(plain, "")
	plain = reImageRef.ReplaceAllString(plain, "")
	plain = reLinkRef.ReplaceAllString(plain, "$1")

	var parts []string
	total := 0
	for _, para := range strings.Split(plain, "\n\n") {
		text := strings.TrimSpace(reInlineMark.ReplaceAllString(para, ""))
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		runes := []rune(text)
		if total == 0 && len(runes) > maxRunes {
			// First paragraph alone exceeds the limit: hard truncate.
			return strings.TrimSpace(string(runes[:maxRunes])) + "…"
		}
		sep := 0
		if total > 0 {
			sep = 1
		}
		if total+sep+len(runes) > maxRunes {
			break
		}
		parts = append(parts, text)
		total += sep + len(runes)
	}
	return strings.Join(parts, " ")
}

// ReadingTime estimates minutes to read the body, rounded up, never below 1.
func ReadingTime(body string, wordsPerMinute int) int {
	words := len(strings.Fields(body))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
