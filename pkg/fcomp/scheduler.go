package fcomp

import (
	"time"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/event"
	"github.com/randalmurphal/fcomp/pkg/fcomp/loop"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
)

// scheduler batches render requests per element and flushes each batch in
// one render call on the next frame. Patches are written to the store
// before they are queued, so a flush renders the live store and never
// writes state back.
type scheduler struct {
	typ     *Type
	pending map[*Element]*batch
}

type batch struct {
	size  int
	meta  Meta
	frame loop.FrameID
}

func newScheduler(t *Type) *scheduler {
	return &scheduler{typ: t, pending: make(map[*Element]*batch)}
}

// enqueue adds one request to el's batch, requesting a frame if the batch
// is new. A disconnected element accepts nothing until it connects again.
func (s *scheduler) enqueue(el *Element, meta Meta) {
	if el.conn != nil && el.conn.Err() != nil {
		observability.LogRenderSkipped(el.logger, 1)
		return
	}
	b, ok := s.pending[el]
	if !ok {
		b = &batch{meta: meta}
		s.pending[el] = b
		b.frame = s.typ.rt.loop.RequestFrame(func(time.Time) { s.flush(el, b) })
	}
	b.size++
}

// cancel drops el's pending batch and its frame.
func (s *scheduler) cancel(el *Element) {
	b, ok := s.pending[el]
	if !ok {
		return
	}
	delete(s.pending, el)
	s.typ.rt.loop.CancelFrame(b.frame)
	observability.LogRenderSkipped(el.logger, b.size)
}

func (s *scheduler) flush(el *Element, b *batch) {
	if s.pending[el] != b {
		return
	}
	delete(s.pending, el)

	t := s.typ
	state := el.store.Clone()

	ctx, span := t.rt.spans.StartRenderSpan(t.rt.ctx, t.name, el.id)
	start := time.Now()
	err := protect("render", func() error {
		t.render(el, state.Clone())
		return nil
	})
	elapsed := time.Since(start)
	t.rt.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogRenderError(el.logger, b.size, err)
		return
	}

	t.rt.metrics.RecordRender(ctx, t.name, elapsed, b.size)
	ms := float64(elapsed) / float64(time.Millisecond)
	observability.LogRender(el.logger, b.meta.Name, b.size, ms)

	el.DispatchEvent(dom.NewEvent(EventRender, RenderDetail{
		State:     state.Clone(),
		Time:      elapsed,
		Meta:      b.meta,
		BatchSize: b.size,
	}))
	t.rt.publish(event.New(event.TypeRender, t.name, el.id, event.RenderPayload{
		State:      state.Clone(),
		DurationMs: ms,
		Meta:       b.meta.Name,
		BatchSize:  b.size,
	}), el.logger)
}
