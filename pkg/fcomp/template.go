package fcomp

import (
	"context"
	"fmt"
	"maps"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// UseShadow attaches a shadow root to every element at construction.
// UseTemplate stamps into it when present.
func UseShadow() Extension {
	return func(_ FactorizeRegistrar, construct ConstructRegistrar) {
		construct(func(el *Element) error {
			if el.ShadowRoot() != nil {
				return nil
			}
			_, err := el.AttachShadow()
			return err
		})
	}
}

// TemplateLoader produces the template an element is stamped from.
type TemplateLoader func(ctx context.Context, el *Element) *task.Task[*dom.Template]

// InlineTemplate parses src once, at the first load.
func InlineTemplate(src string) TemplateLoader {
	var (
		tmpl *dom.Template
		err  error
	)
	return func(_ context.Context, el *Element) *task.Task[*dom.Template] {
		if tmpl == nil && err == nil {
			tmpl, err = dom.ParseTemplate(src)
		}
		if err != nil {
			return task.Rejected[*dom.Template](el.typ.rt.loop, err)
		}
		return task.Resolved(el.typ.rt.loop, tmpl)
	}
}

// RemoteTemplate fetches url with the runtime's HTTP client and retry
// policy. A successful fetch is reused by every later load; a failed one
// is tried again on the next load.
func RemoteTemplate(url string) TemplateLoader {
	var cached *dom.Template
	return func(ctx context.Context, el *Element) *task.Task[*dom.Template] {
		rt := el.typ.rt
		if cached != nil {
			return task.Resolved(rt.loop, cached)
		}
		fetched := task.Go(ctx, rt.loop, func(ctx context.Context) (*dom.Template, error) {
			return dom.FetchTemplate(ctx, rt.client, url, rt.retry)
		})
		return task.Then(fetched, func(t *dom.Template) (*dom.Template, error) {
			cached = t
			return t, nil
		})
	}
}

// RefFunc locates a node inside a stamped element.
type RefFunc func(el *Element) *dom.Element

// SelectorRefs compiles a name to selector map into ref functions. Each
// searches the shadow root when there is one, else the element itself.
func SelectorRefs(selectors map[string]string) (map[string]RefFunc, error) {
	out := make(map[string]RefFunc, len(selectors))
	for name, src := range selectors {
		sel, err := dom.CompileSelector(src)
		if err != nil {
			return nil, fmt.Errorf("ref %q: %w", name, err)
		}
		out[name] = func(el *Element) *dom.Element {
			if root := el.ShadowRoot(); root != nil {
				return root.Find(sel)
			}
			return el.Find(sel)
		}
	}
	return out, nil
}

// UseTemplate stamps the loaded template into the element on its first
// connection, then resolves refs into Element.Ref. The connection render
// waits for the template; a load failure rejects the connection.
func UseTemplate(load TemplateLoader, refs map[string]RefFunc) Extension {
	refs = maps.Clone(refs)
	return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			if load == nil {
				return nil
			}
			b.Wrap(SlotConnected, Link(func(el *Element, _ Call, _ State) *task.Task[State] {
				if el.stamped {
					return nil
				}
				loaded := task.Await(el.typ.rt.loop, func() *task.Task[*dom.Template] {
					return load(el.Context(), el)
				})
				return task.Then(loaded, func(t *dom.Template) (State, error) {
					if el.stamped {
						return nil, nil
					}
					if err := stamp(el, t, refs); err != nil {
						return nil, err
					}
					return nil, nil
				})
			}))
			return nil
		})
	}
}

func stamp(el *Element, t *dom.Template, refs map[string]RefFunc) error {
	if t == nil {
		return fmt.Errorf("template for <%s> is nil", el.typ.name)
	}
	nodes, err := t.Clone(el.Document())
	if err != nil {
		return err
	}
	target := el.Element
	if root := el.ShadowRoot(); root != nil {
		target = root
	}
	if err := target.Append(nodes...); err != nil {
		return err
	}
	el.stamped = true

	if el.refs == nil {
		el.refs = make(map[string]*dom.Element, len(refs))
	}
	for name, find := range refs {
		el.refs[name] = find(el)
	}
	return nil
}
