package dom

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// Element implements templ.Component so rendered trees compose with templ
// templates and handlers.
var _ templ.Component = (*Element)(nil)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Render writes e as HTML. Shadow roots are serialized as declarative
// shadow DOM templates.
func (e *Element) Render(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ew := &errWriter{w: w}
	e.write(ew)
	return ew.err
}

// OuterHTML returns e serialized as HTML.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	_ = e.Render(context.Background(), &buf)
	return buf.String()
}

// InnerHTML returns e's light children serialized as HTML.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	ew := &errWriter{w: &buf}
	for _, c := range e.children {
		c.write(ew)
	}
	return buf.String()
}

func (e *Element) write(w *errWriter) {
	switch e.tag {
	case TextTag:
		w.str(html.EscapeString(e.text))
		return
	case ShadowRootTag, FragmentTag:
		for _, c := range e.children {
			c.write(w)
		}
		return
	}

	w.str("<" + e.tag)
	for _, a := range e.attrs {
		w.str(" " + a.Name)
		if a.Value != "" {
			w.str(`="` + html.EscapeString(a.Value) + `"`)
		}
	}
	w.str(">")
	if voidElements[e.tag] {
		return
	}
	if e.shadow != nil {
		w.str(`<template shadowrootmode="open">`)
		e.shadow.write(w)
		w.str("</template>")
	}
	for _, c := range e.children {
		c.write(w)
	}
	w.str("</" + e.tag + ">")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) str(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}
