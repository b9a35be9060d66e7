// Package components holds the registry of embeddable interactive components
// that posts may reference. Every component declares a typed props contract;
// references are resolved and validated before any page renders, so an
// unknown component or a type-invalid prop aborts the build instead of
// shipping a half-rendered page.
package components

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/tverberg/blogsmith/internal/markdown"
)

// PropType enumerates the supported prop value types.
type PropType string

const (
	PropString PropType = "string"
	PropInt    PropType = "int"
	PropFloat  PropType = "float"
	PropBool   PropType = "bool"
)

// PropSpec is the contract for a single component prop.
type PropSpec struct {
	Type     PropType
	Required bool
	Default  string // literal in the prop's own syntax; empty means no default
}

// Component describes one embeddable component and its props contract.
type Component struct {
	Name        string // tag name as written in posts, e.g. MonteCarloPi
	Description string
	Props       map[string]PropSpec
}

// Registry maps component names to their definitions.
type Registry struct {
	components map[string]Component
}

// NewRegistry builds a registry from the given components.
func NewRegistry(comps ...Component) *Registry {
	m := make(map[string]Component, len(comps))
	for _, c := range comps {
		m[c.Name] = c
	}
	return &Registry{components: m}
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the component definition for a name.
func (r *Registry) Lookup(name string) (Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

// Resolved is a validated component reference with typed prop values.
type Resolved struct {
	Component Component
	Props     map[string]any
}

// Resolve validates a reference against the registry: the component must
// exist, every given prop must be declared with a parseable value, and every
// required prop must end up with a value (given or default).
func (r *Registry) Resolve(ref markdown.ComponentRef) (Resolved, error) {
	comp, ok := r.components[ref.Name]
	if !ok {
		return Resolved{}, fmt.Errorf("unknown component %q (registered: %s)",
			ref.Name, strings.Join(r.Names(), ", "))
	}

	props := make(map[string]any, len(comp.Props))

	for _, name := range ref.PropNames() {
		spec, declared := comp.Props[name]
		if !declared {
			return Resolved{}, fmt.Errorf("component %s has no prop %q", comp.Name, name)
		}
		v, err := coerce(ref.Props[name], spec.Type)
		if err != nil {
			return Resolved{}, fmt.Errorf("component %s prop %q: %w", comp.Name, name, err)
		}
		props[name] = v
	}

	for name, spec := range comp.Props {
		if _, set := props[name]; set {
			continue
		}
		if spec.Default != "" {
			v, err := coerce(spec.Default, spec.Type)
			if err != nil {
				return Resolved{}, fmt.Errorf("component %s default for %q: %w", comp.Name, name, err)
			}
			props[name] = v
			continue
		}
		if spec.Required {
			return Resolved{}, fmt.Errorf("component %s missing required prop %q", comp.Name, name)
		}
	}

	return Resolved{Component: comp, Props: props}, nil
}

func coerce(raw string, t PropType) (any, error) {
	switch t {
	case PropString:
		return raw, nil
	case PropInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("want int, got %q", raw)
		}
		return v, nil
	case PropFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("want float, got %q", raw)
		}
		return v, nil
	case PropBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("want bool, got %q", raw)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported prop type %q", t)
	}
}

// MountHTML renders the resolved reference as a mount-point element. The
// client-side runtime hydrates these by component id.
func (res Resolved) MountHTML() (string, error) {
	payload, err := json.Marshal(res.Props)
	if err != nil {
		return "", fmt.Errorf("marshal props for %s: %w", res.Component.Name, err)
	}
	// JSON goes into a single-quoted attribute; only ' and & need escaping.
	escaped := strings.ReplaceAll(string(payload), "&", "&amp;")
	escaped = strings.ReplaceAll(escaped, "'", "&#39;")
	return fmt.Sprintf(`<div class="component-mount" data-component="%s" data-props='%s'></div>`,
		MountID(res.Component.Name), escaped), nil
}

// MountID converts a component tag name to its kebab-case mount identifier,
// e.g. MonteCarloPi -> monte-carlo-pi.
func MountID(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
