package fcomp

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/loop"
)

// Snapshot renders c on the runtime's loop and returns the HTML. It is
// safe to call from any goroutine while the loop runs; it blocks until
// the loop gets to it or ctx is done.
func (rt *Runtime) Snapshot(ctx context.Context, c templ.Component) ([]byte, error) {
	type result struct {
		html []byte
		err  error
	}
	done := make(chan result, 1)
	if !rt.loop.Post(func() {
		var buf bytes.Buffer
		err := c.Render(ctx, &buf)
		done <- result{buf.Bytes(), err}
	}) {
		return nil, loop.ErrLoopStopped
	}
	select {
	case r := <-done:
		return r.html, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Page returns a full HTML document wrapping doc's body. The body is
// serialized on the loop, so the page can be rendered from HTTP handlers.
func (rt *Runtime) Page(doc *dom.Document, title string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := rt.Snapshot(ctx, doc.Body())
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<!DOCTYPE html><html><head><title>"+
			templ.EscapeString(title)+"</title></head>"); err != nil {
			return err
		}
		if _, err := w.Write(body); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</html>")
		return err
	})
}

// Handler serves Page(doc, title).
func (rt *Runtime) Handler(doc *dom.Document, title string) http.Handler {
	return templ.Handler(rt.Page(doc, title))
}
