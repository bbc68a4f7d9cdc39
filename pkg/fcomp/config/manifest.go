package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	fcerrors "github.com/randalmurphal/fcomp/pkg/fcomp/errors"
)

// DefaultFrameInterval is used when a manifest does not set frame_interval.
const DefaultFrameInterval = 16 * time.Millisecond

// Manifest declares component types in data rather than code.
//
//	frame_interval: 16ms
//	components:
//	  - name: x-counter
//	    shadow: true
//	    initial: {count: 0}
//	    attributes: {value: number, data-label: string}
//	    properties: [count]
//	    template: '<span id="out"></span>'
//	    refs: {out: "#out"}
type Manifest struct {
	FrameInterval time.Duration
	Components    []ComponentSpec
}

// ComponentSpec describes one component type.
type ComponentSpec struct {
	// Name is the custom element name.
	Name string
	// Initial is the initial state.
	Initial map[string]any
	// Attributes maps observed attribute names to coercer names
	// ("number", "integer", "boolean", "string").
	Attributes map[string]string
	// Properties are the declared property names.
	Properties []string
	// Shadow attaches a shadow root at construction.
	Shadow bool
	// Template is inline template HTML.
	Template string
	// TemplateURL is fetched on first connection when Template is empty.
	TemplateURL string
	// Refs maps names to selectors resolved against the stamped template.
	Refs map[string]string
}

// Component returns the spec named name.
func (m *Manifest) Component(name string) (ComponentSpec, bool) {
	for _, c := range m.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// LoadManifest reads a manifest from a YAML or JSON file.
func LoadManifest(path string) (*Manifest, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(cfg)
}

// ParseManifest extracts a manifest from cfg. All validation problems are
// reported together.
func ParseManifest(cfg Config) (*Manifest, error) {
	m := &Manifest{
		FrameInterval: cfg.Duration("frame_interval", DefaultFrameInterval),
	}

	var errs []error
	seen := make(map[string]bool)
	for i, raw := range cfg.List("components") {
		item, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, &fcerrors.ValidationError{
				Field:   fmt.Sprintf("components[%d]", i),
				Message: "expected a mapping",
			})
			continue
		}
		c := New(item)
		spec := ComponentSpec{
			Name:        c.String("name", ""),
			Initial:     c.Map("initial"),
			Attributes:  c.StringMap("attributes"),
			Properties:  c.StringSlice("properties", nil),
			Shadow:      c.Bool("shadow", false),
			Template:    c.String("template", ""),
			TemplateURL: c.String("template_url", ""),
			Refs:        c.StringMap("refs"),
		}
		field := func(name string) string { return fmt.Sprintf("components[%d].%s", i, name) }

		switch {
		case spec.Name == "":
			errs = append(errs, &fcerrors.ValidationError{Field: field("name"), Message: "required"})
		case seen[spec.Name]:
			errs = append(errs, &fcerrors.ValidationError{Field: field("name"), Message: "duplicate " + spec.Name})
		}
		seen[spec.Name] = true

		for attr, coercer := range spec.Attributes {
			if !knownCoercer(coercer) {
				errs = append(errs, &fcerrors.ValidationError{
					Field:   field("attributes." + attr),
					Message: "unknown coercer " + coercer,
				})
			}
		}
		if len(spec.Refs) > 0 && spec.Template == "" && spec.TemplateURL == "" {
			errs = append(errs, &fcerrors.ValidationError{Field: field("refs"), Message: "refs require a template"})
		}
		m.Components = append(m.Components, spec)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// CoercerNames lists the coercer names a manifest may use.
var CoercerNames = []string{"number", "integer", "boolean", "string"}

func knownCoercer(name string) bool {
	return slices.Contains(CoercerNames, name)
}
