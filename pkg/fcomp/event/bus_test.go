package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/fcomp/pkg/fcomp/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func TestBus_Subscribe(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 10})
	defer bus.Close()

	renders := &collector{}
	all := &collector{}
	sub := bus.Subscribe([]string{event.TypeRender}, renders)
	require.NotNil(t, sub)
	require.NotNil(t, bus.SubscribeAll(all))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, event.NewAny(event.TypeRender, "x-a", "e1", nil)))
	require.NoError(t, bus.Publish(ctx, event.NewAny(event.TypeAttributeChange, "x-a", "e1", nil)))

	require.Eventually(t, func() bool { return all.Len() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{event.TypeRender, event.TypeAttributeChange}, all.Types())
	require.Eventually(t, func() bool { return renders.Len() == 1 }, waitFor, time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, event.NewAny(event.TypeRender, "x-a", "e1", nil)))
	require.Eventually(t, func() bool { return all.Len() == 3 }, waitFor, time.Millisecond)
	assert.Equal(t, 1, renders.Len())
}

func TestBus_PauseResume(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	c := &collector{}
	sub := bus.SubscribeAll(c)
	ctx := context.Background()

	sub.Pause()
	assert.True(t, sub.IsPaused())
	require.NoError(t, bus.Publish(ctx, event.NewAny("a", "x-a", "e", nil)))

	sub.Resume()
	assert.False(t, sub.IsPaused())
	require.NoError(t, bus.Publish(ctx, event.NewAny("b", "x-a", "e", nil)))

	require.Eventually(t, func() bool { return c.Len() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"b"}, c.Types())
}

func TestBus_NonBlockingDrops(t *testing.T) {
	var dropped atomic.Int32
	block := make(chan struct{})
	bus := event.NewBus(event.BusConfig{
		BufferSize:  1,
		NonBlocking: true,
		OnDrop:      func(event.Event, string) { dropped.Add(1) },
	})
	defer bus.Close()
	defer close(block)

	started := make(chan struct{}, 1)
	bus.SubscribeAll(event.HandlerFunc(func(context.Context, event.Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}))

	ctx := context.Background()
	// First event occupies the handler.
	require.NoError(t, bus.Publish(ctx, event.NewAny("t", "x-a", "e", nil)))
	<-started
	// Second fills the buffer, the rest are dropped.
	for range 3 {
		require.NoError(t, bus.Publish(ctx, event.NewAny("t", "x-a", "e", nil)))
	}
	assert.Equal(t, int32(2), dropped.Load())
}

func TestBus_OnError(t *testing.T) {
	errCh := make(chan error, 1)
	bus := event.NewBus(event.BusConfig{
		OnError: func(_ event.Event, id string, err error) {
			assert.NotEmpty(t, id)
			errCh <- err
		},
	})
	defer bus.Close()

	boom := errors.New("boom")
	bus.SubscribeAll(event.HandlerFunc(func(context.Context, event.Event) error { return boom }))
	require.NoError(t, bus.Publish(context.Background(), event.NewAny("t", "x-a", "e", nil)))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("OnError not called")
	}
}

func TestBus_MaxSubscribers(t *testing.T) {
	bus := event.NewBus(event.BusConfig{MaxSubscribers: 1})
	defer bus.Close()

	assert.NotNil(t, bus.SubscribeAll(&collector{}))
	assert.Nil(t, bus.SubscribeAll(&collector{}))
}

func TestBus_Closed(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), event.NewAny("t", "x-a", "e", nil))
	assert.ErrorIs(t, err, event.ErrBusClosed)
	assert.Nil(t, bus.SubscribeAll(&collector{}))
}

func TestBus_PublishContextCancelled(t *testing.T) {
	block := make(chan struct{})
	bus := event.NewBus(event.BusConfig{BufferSize: 1})
	defer bus.Close()
	defer close(block)

	started := make(chan struct{}, 1)
	bus.SubscribeAll(event.HandlerFunc(func(context.Context, event.Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), event.NewAny("t", "x-a", "e", nil)))
	<-started
	require.NoError(t, bus.Publish(context.Background(), event.NewAny("t", "x-a", "e", nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bus.Publish(ctx, event.NewAny("t", "x-a", "e", nil))
	assert.ErrorIs(t, err, context.Canceled)
}
