package fcomp

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	fcerrors "github.com/randalmurphal/fcomp/pkg/fcomp/errors"
	"github.com/randalmurphal/fcomp/pkg/fcomp/event"
	"github.com/randalmurphal/fcomp/pkg/fcomp/loop"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
)

// Runtime owns the event loop and the ambient services component types
// share: logging, metrics, tracing, event publication and HTTP.
//
// A Runtime is configured once with New. Types defined on it run all of
// their lifecycle work on its loop.
type Runtime struct {
	loop    *loop.Loop
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	bus     event.Bus
	ctx     context.Context
	retry   fcerrors.RetryConfig
	client  *http.Client

	frameInterval time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLoop runs component work on l instead of a loop created by New.
func WithLoop(l *loop.Loop) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.loop = l
		}
	}
}

// WithFrameInterval sets the frame interval of the loop created by New.
// Ignored together with WithLoop.
// Default: 16ms
func WithFrameInterval(d time.Duration) Option {
	return func(rt *Runtime) {
		rt.frameInterval = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithMetrics records render, lifecycle, attribute and snapshot metrics.
// Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(rt *Runtime) {
		if m != nil {
			rt.metrics = m
		}
	}
}

// WithSpanManager traces definitions, lifecycle invocations and renders.
// Default: observability.NoopSpanManager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(rt *Runtime) {
		if s != nil {
			rt.spans = s
		}
	}
}

// WithEventBus mirrors "render", "change:attribute" and lifecycle failures
// onto bus.
func WithEventBus(bus event.Bus) Option {
	return func(rt *Runtime) {
		rt.bus = bus
	}
}

// WithContext sets the parent context of every element connection.
// Cancelling it cancels all in-flight lifecycle work and pending renders.
func WithContext(ctx context.Context) Option {
	return func(rt *Runtime) {
		if ctx != nil {
			rt.ctx = ctx
		}
	}
}

// WithRetry sets the retry policy for remote templates.
// Default: errors.DefaultRetry.
func WithRetry(cfg fcerrors.RetryConfig) Option {
	return func(rt *Runtime) {
		rt.retry = cfg
	}
}

// WithHTTPClient sets the client used for remote templates.
// Default: http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(rt *Runtime) {
		if c != nil {
			rt.client = c
		}
	}
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		ctx:     context.Background(),
		retry:   fcerrors.DefaultRetry,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.loop == nil {
		rt.loop = loop.New(loop.WithFrameInterval(rt.frameInterval), loop.WithLogger(rt.logger))
	}
	return rt
}

var defaultRuntime = sync.OnceValue(func() *Runtime { return New() })

// Default returns the process-wide Runtime used by the package-level Define.
func Default() *Runtime {
	return defaultRuntime()
}

// Loop returns the event loop. Drive it with Run, or with RunFrame in tests.
func (rt *Runtime) Loop() *loop.Loop { return rt.loop }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Context returns the parent context of element connections.
func (rt *Runtime) Context() context.Context { return rt.ctx }

func (rt *Runtime) publish(evt event.Event, logger *slog.Logger) {
	if rt.bus == nil {
		return
	}
	if err := rt.bus.Publish(rt.ctx, evt); err != nil {
		observability.LogPublishError(logger, evt.Type(), err)
	}
}
