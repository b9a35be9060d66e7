package markdown

import (
	"regexp"
	"sort"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ComponentRef is one embedded-component reference found in a post body:
// a self-closing capitalized tag such as
//
//	<MonteCarloPi samples="5000" />
//
// Raw preserves the exact source text so the compiler can substitute the
// resolved mount markup after rendering.
type ComponentRef struct {
	Name  string
	Props map[string]string
	Raw   string
}

// ImageRef is one image reference with its destination as written.
type ImageRef struct {
	Destination string
}

var (
	reComponent = regexp.MustCompile(`<([A-Z][A-Za-z0-9]*)((?:\s+[a-zA-Z][\w-]*="[^"]*")*)\s*/>`)
	reProp      = regexp.MustCompile(`([a-zA-Z][\w-]*)="([^"]*)"`)
)

// ExtractComponentRefs walks the document tree and collects component
// references from raw-HTML constructs. Fenced code blocks are never
// considered, so posts can show component syntax in examples without
// triggering resolution.
func ExtractComponentRefs(body []byte) []ComponentRef {
	root := ParseBody(body)

	var refs []ComponentRef
	seen := map[string]struct{}{}

	collect := func(raw []byte) {
		for _, m := range reComponent.FindAllSubmatch(raw, -1) {
			ref := ComponentRef{
				Name:  string(m[1]),
				Props: parseProps(m[2]),
				Raw:   string(m[0]),
			}
			if _, dup := seen[ref.Raw]; dup {
				continue
			}
			seen[ref.Raw] = struct{}{}
			refs = append(refs, ref)
		}
	}

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.HTMLBlock:
			collect(nodeLines(node, body))
		case *gmast.RawHTML:
			collect(segmentsText(node.Segments, body))
		}
		return gmast.WalkContinue, nil
	})
	return refs
}

// ExtractImageRefs parses a markdown body and extracts image destinations in
// document order, de-duplicated.
func ExtractImageRefs(body []byte) []ImageRef {
	root := ParseBody(body)

	var refs []ImageRef
	seen := map[string]struct{}{}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if img, ok := n.(*gmast.Image); ok {
			dest := string(img.Destination)
			if _, dup := seen[dest]; !dup {
				seen[dest] = struct{}{}
				refs = append(refs, ImageRef{Destination: dest})
			}
		}
		return gmast.WalkContinue, nil
	})
	return refs
}

func parseProps(raw []byte) map[string]string {
	props := map[string]string{}
	for _, m := range reProp.FindAllSubmatch(raw, -1) {
		props[string(m[1])] = string(m[2])
	}
	return props
}

// PropNames returns the prop keys in sorted order, for stable error messages.
func (r ComponentRef) PropNames() []string {
	names := make([]string, 0, len(r.Props))
	for k := range r.Props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nodeLines(n interface{ Lines() *text.Segments }, source []byte) []byte {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(source)...)
	}
	return out
}

func segmentsText(segs *text.Segments, source []byte) []byte {
	var out []byte
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		out = append(out, seg.Value(source)...)
	}
	return out
}
