package fcomp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/fcomp/pkg/fcomp/snapshot"
)

func TestUsePersistence_RoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) snapshot.Store{
		"memory": func(*testing.T) snapshot.Store { return snapshot.NewMemoryStore() },
		"sqlite": func(t *testing.T) snapshot.Store {
			s, err := snapshot.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return s
		},
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			for _, codec := range []snapshot.Codec{snapshot.MsgPack, snapshot.JSON} {
				t.Run(codec.Name(), func(t *testing.T) {
					tag := "x-note-" + codec.Name()

					rt := testRuntime()
					first := &recorder{}
					typ, err := rt.Define(tag, first.render, State{"text": ""},
						UsePersistence(store, WithCodec(codec)))
					require.NoError(t, err)

					_, el := mount(t, typ, map[string]string{"id": "note-1"})
					flushUntil(t, rt, func() bool { return first.count() == 1 })
					el.SetState(State{"text": "hello", "count": 3})
					flush(rt)
					_, err = settle(t, rt, Saved(el))
					require.NoError(t, err)

					infos, err := store.List(context.Background(), tag)
					require.NoError(t, err)
					require.Len(t, infos, 1)
					assert.Equal(t, "note-1", infos[0].Key)

					rt2 := testRuntime()
					rec := &recorder{}
					typ2, err := rt2.Define(tag, rec.render, State{"text": ""}, UsePersistence(store))
					require.NoError(t, err)

					_, restored := mount(t, typ2, map[string]string{"id": "note-1"})
					flushUntil(t, rt2, func() bool { return rec.count() == 1 })

					assert.Equal(t, "hello", rec.last()["text"])
					assert.EqualValues(t, 3, restored.State()["count"])
				})
			}
		})
	}
}

// failingStore fails every load.
type failingStore struct {
	*snapshot.MemoryStore
	err error
}

func (f failingStore) Load(context.Context, string, string) ([]byte, error) {
	return nil, f.err
}

func TestUsePersistence_LoadFailure(t *testing.T) {
	broken := errors.New("disk on fire")

	t.Run("non-fatal by default", func(t *testing.T) {
		rt := testRuntime()
		rec := &recorder{}
		typ, err := rt.Define("x-soft", rec.render, State{"a": 1},
			UsePersistence(failingStore{snapshot.NewMemoryStore(), broken}))
		require.NoError(t, err)

		mount(t, typ, nil)
		flushUntil(t, rt, func() bool { return rec.count() == 1 })
		assert.Equal(t, 1, rec.last()["a"])
	})

	t.Run("fatal with option", func(t *testing.T) {
		rt := testRuntime()
		rec := &recorder{}
		typ, err := rt.Define("x-hard", rec.render, nil,
			UsePersistence(failingStore{snapshot.NewMemoryStore(), broken}, WithSnapshotFailureFatal()))
		require.NoError(t, err)

		_, el := mount(t, typ, nil)
		_, err = settle(t, rt, el.Lifecycle(SlotConnected))
		assert.ErrorIs(t, err, broken)
		assert.Equal(t, 0, rec.count())
	})
}

func TestUsePersistence_CustomKey(t *testing.T) {
	store := snapshot.NewMemoryStore()
	rt := testRuntime()
	rec := &recorder{}
	typ, err := rt.Define("x-keyed", rec.render, nil,
		UsePersistence(store, WithSnapshotKey(func(el *Element) string {
			v, _ := el.GetAttribute("user")
			return "user:" + v
		})))
	require.NoError(t, err)

	_, el := mount(t, typ, map[string]string{"user": "ada"})
	flushUntil(t, rt, func() bool { return rec.count() == 1 })
	_, err = settle(t, rt, Saved(el))
	require.NoError(t, err)

	data, err := store.Load(context.Background(), "x-keyed", "user:ada")
	require.NoError(t, err)
	snap, err := snapshot.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "user:ada", snap.Key)
	assert.Equal(t, "x-keyed", snap.Component)
}
