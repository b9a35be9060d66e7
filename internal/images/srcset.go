package images

import (
	"fmt"
	"strings"
)

// Primary returns the variant a compiled page should use as its img src:
// the widest variant in the first format that produced one.
func (r Result) Primary() (Output, bool) {
	if len(r.Variants) == 0 {
		return Output{}, false
	}
	best := r.Variants[0]
	for _, v := range r.Variants[1:] {
		if v.Format == best.Format && v.ActualWidth > best.ActualWidth {
			best = v
		}
	}
	return best, true
}

// Srcset renders the srcset attribute value for the primary format's
// variants. Duplicate widths (a small source collapsing several targets)
// are emitted once.
func (r Result) Srcset() string {
	primary, ok := r.Primary()
	if !ok || r.Copied {
		return ""
	}
	var parts []string
	seen := map[int]struct{}{}
	for _, v := range r.Variants {
		if v.Format != primary.Format {
			continue
		}
		if _, dup := seen[v.ActualWidth]; dup {
			continue
		}
		seen[v.ActualWidth] = struct{}{}
		parts = append(parts, fmt.Sprintf("/%s %dw", v.Path, v.ActualWidth))
	}
	return strings.Join(parts, ", ")
}
