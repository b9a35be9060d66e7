package content

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the typed metadata header of a post. Parsing is strict: the
// schema is validated at this boundary and callers never see a
// partially-filled record.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Tags        []string `yaml:"tags,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Slug        string   `yaml:"slug,omitempty"`
	Draft       bool     `yaml:"draft,omitempty"`
}

// Validate checks required fields. Title and date are mandatory; everything
// else defaults sensibly.
func (fm Frontmatter) Validate() error {
	return validation.ValidateStruct(&fm,
		validation.Field(&fm.Title, validation.Required),
		validation.Field(&fm.Date, validation.Required),
	)
}

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// ErrNoFrontmatter indicates the document does not start with a frontmatter block.
var ErrNoFrontmatter = errors.New("document has no yaml frontmatter block")

// dateLayouts accepted for the frontmatter date field, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// SplitFrontmatter separates the `---` delimited YAML header from the
// Markdown body. Unlike permissive frontmatter readers, a post without a
// header is an error here: every published post needs a title and a date.
func SplitFrontmatter(doc []byte) (header []byte, body []byte, err error) {
	nl := detectNewline(doc)

	open := []byte("---" + nl)
	if !bytes.HasPrefix(doc, open) {
		return nil, nil, ErrNoFrontmatter
	}

	headerStart := len(open)
	if bytes.HasPrefix(doc[headerStart:], open) {
		// Empty header block.
		return []byte{}, doc[headerStart+len(open):], nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(doc[headerStart:], closeSeq)
	if idx < 0 {
		// Header closed at EOF without trailing newline.
		closeEOF := []byte(nl + "---")
		if bytes.HasSuffix(doc[headerStart:], closeEOF) {
			end := len(doc) - len(closeEOF)
			return doc[headerStart:end], []byte{}, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}

	headerEnd := headerStart + idx + len(nl)
	bodyStart := headerStart + idx + len(closeSeq)
	return doc[headerStart:headerEnd], doc[bodyStart:], nil
}

// ParseFrontmatter decodes the raw YAML header into a typed, validated
// record. Unknown keys are rejected so typos surface at build time.
func ParseFrontmatter(header []byte) (Frontmatter, error) {
	var fm Frontmatter
	dec := yaml.NewDecoder(bytes.NewReader(header))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil {
		return Frontmatter{}, fmt.Errorf("decode frontmatter: %w", err)
	}
	if err := fm.Validate(); err != nil {
		return Frontmatter{}, err
	}
	return fm, nil
}

// ParseDate parses the frontmatter date field, accepting ISO dates and full
// RFC3339 timestamps.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q (want YYYY-MM-DD or RFC3339)", raw)
}

func detectNewline(doc []byte) string {
	for i := 0; i+1 < len(doc); i++ {
		if doc[i] == '\r' && doc[i+1] == '\n' {
			return "\r\n"
		}
		if doc[i] == '\n' {
			return "\n"
		}
	}
	return "\n"
}
