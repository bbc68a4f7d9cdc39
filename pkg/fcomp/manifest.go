package fcomp

import (
	"fmt"

	"github.com/randalmurphal/fcomp/pkg/fcomp/config"
)

// DefineSpec defines a component type described by spec. The spec's
// shadow root, attributes, properties, template and refs become
// extensions that run before exts.
//
// Attributes use RejectUnchanged as their validator; pass a type defined
// with Define to use another one.
func (rt *Runtime) DefineSpec(spec config.ComponentSpec, render RenderFunc, exts ...Extension) (*Type, error) {
	var built []Extension
	if spec.Shadow {
		built = append(built, UseShadow())
	}
	if len(spec.Attributes) > 0 {
		coercers := make(map[string]Coercer, len(spec.Attributes))
		for attr, name := range spec.Attributes {
			c, err := CoercerByName(name)
			if err != nil {
				return nil, &DefineError{Component: spec.Name, Phase: "manifest", Index: -1, Err: fmt.Errorf("attribute %q: %w", attr, err)}
			}
			coercers[attr] = c
		}
		built = append(built, UseAttributes(RejectUnchanged, coercers))
	}
	if len(spec.Properties) > 0 {
		built = append(built, UseProperties(spec.Properties...))
	}

	var loader TemplateLoader
	switch {
	case spec.Template != "":
		loader = InlineTemplate(spec.Template)
	case spec.TemplateURL != "":
		loader = RemoteTemplate(spec.TemplateURL)
	}
	if loader != nil {
		refs, err := SelectorRefs(spec.Refs)
		if err != nil {
			return nil, &DefineError{Component: spec.Name, Phase: "manifest", Index: -1, Err: err}
		}
		built = append(built, UseTemplate(loader, refs))
	}

	return rt.Define(spec.Name, render, State(spec.Initial), append(built, exts...)...)
}

// DefineManifest defines every component of m, taking each render function
// from renders by component name. It stops at the first failure.
func (rt *Runtime) DefineManifest(m *config.Manifest, renders map[string]RenderFunc) (map[string]*Type, error) {
	types := make(map[string]*Type, len(m.Components))
	for _, spec := range m.Components {
		render, ok := renders[spec.Name]
		if !ok {
			return nil, &DefineError{Component: spec.Name, Phase: "manifest", Index: -1, Err: ErrNoRender}
		}
		t, err := rt.DefineSpec(spec, render)
		if err != nil {
			return nil, err
		}
		types[spec.Name] = t
	}
	return types, nil
}
