package fcomp

import (
	"context"
	"errors"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
	"github.com/randalmurphal/fcomp/pkg/fcomp/snapshot"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// PersistOption configures UsePersistence.
type PersistOption func(*persister)

// WithCodec sets the snapshot codec. Default: snapshot.MsgPack.
func WithCodec(c snapshot.Codec) PersistOption {
	return func(p *persister) {
		if c != nil {
			p.codec = c
		}
	}
}

// WithSnapshotFailureFatal makes a failed load reject the connection
// instead of connecting with the state at hand.
func WithSnapshotFailureFatal() PersistOption {
	return func(p *persister) {
		p.fatal = true
	}
}

// WithSnapshotKey sets how an element's snapshot key is derived.
// Default: the "id" attribute, else the element id.
func WithSnapshotKey(fn func(el *Element) string) PersistOption {
	return func(p *persister) {
		if fn != nil {
			p.key = fn
		}
	}
}

// UsePersistence restores an element's state from store on its first
// connection and saves the full state after every render. Saves of one
// element are written in order.
func UsePersistence(store snapshot.Store, opts ...PersistOption) Extension {
	p := &persister{store: store, codec: snapshot.MsgPack, key: defaultSnapshotKey}
	for _, opt := range opts {
		opt(p)
	}
	return func(factorize FactorizeRegistrar, construct ConstructRegistrar) {
		if store == nil {
			return
		}
		factorize(func(b *Builder, _ Renderer) error {
			b.Wrap(SlotConnected, Link(p.restore))
			return nil
		})
		construct(func(el *Element) error {
			el.AddEventListener(EventRender, func(*dom.Event) { p.save(el) })
			return nil
		})
	}
}

func defaultSnapshotKey(el *Element) string {
	if id, ok := el.GetAttribute("id"); ok && id != "" {
		return id
	}
	return el.ID()
}

type persister struct {
	store snapshot.Store
	codec snapshot.Codec
	fatal bool
	key   func(el *Element) string
}

type persistState struct {
	restored bool
	saving   *task.Task[struct{}]
}

func (p *persister) state(el *Element) *persistState {
	if el.extState == nil {
		el.extState = make(map[any]any)
	}
	ps, ok := el.extState[p].(*persistState)
	if !ok {
		ps = &persistState{}
		el.extState[p] = ps
	}
	return ps
}

func (p *persister) restore(el *Element, _ Call, _ State) *task.Task[State] {
	ps := p.state(el)
	if ps.restored {
		return nil
	}
	ps.restored = true

	t := el.typ
	key := p.key(el)
	loaded := task.Go(el.Context(), t.rt.loop, func(ctx context.Context) ([]byte, error) {
		return p.store.Load(ctx, t.name, key)
	})
	decoded := task.Then(loaded, func(data []byte) (State, error) {
		snap, err := snapshot.Decode(data)
		if err != nil {
			return nil, err
		}
		return State(snap.State), nil
	})
	return task.Catch(decoded, func(err error) (State, error) {
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil, nil
		}
		if p.fatal {
			return nil, err
		}
		observability.LogSnapshotError(el.logger, key, "load", err)
		return nil, nil
	})
}

func (p *persister) save(el *Element) {
	t := el.typ
	key := p.key(el)
	data, err := snapshot.Encode(snapshot.New(t.name, key, el.store.Clone()), p.codec)
	if err != nil {
		observability.LogSnapshotError(el.logger, key, "encode", err)
		return
	}

	write := func() *task.Task[struct{}] {
		return task.Go(t.rt.ctx, t.rt.loop, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.store.Save(ctx, t.name, key, data)
		})
	}

	ps := p.state(el)
	var next *task.Task[struct{}]
	if ps.saving == nil || ps.saving.Settled() {
		next = write()
	} else {
		next = task.ThenTask(task.Catch(ps.saving, ignoreError),
			func(struct{}) *task.Task[struct{}] { return write() })
	}
	ps.saving = next

	next.OnSettled(func(_ struct{}, err error) {
		if err != nil {
			observability.LogSnapshotError(el.logger, key, "save", err)
			return
		}
		t.rt.metrics.RecordSnapshot(t.rt.ctx, t.name, int64(len(data)))
		observability.LogSnapshot(el.logger, key, len(data))
	})
}

// Saved returns a task that settles once every snapshot save queued for el
// so far has been written.
func Saved(el *Element) *task.Task[struct{}] {
	for _, v := range el.extState {
		if ps, ok := v.(*persistState); ok && ps.saving != nil {
			return task.Catch(ps.saving, ignoreError)
		}
	}
	return task.Resolved(el.typ.rt.loop, struct{}{})
}

func ignoreError(error) (struct{}, error) { return struct{}{}, nil }
