package sdk

import (
	"fmt"
	"net/http"

	"github.com/ChiaYuChang/sharpai/pkgs/stream"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrOptNilClient         = fmt.Errorf("http client cannot be nil")
	ErrOptNilTracerProvider = fmt.Errorf("tracer provider cannot be nil")
	ErrOptInvalidBodyLimit  = fmt.Errorf("error body limit must be greater than 0")
)

// DefaultMaxErrorBodyBytes bounds how much of a non-2xx body is read for
// error normalization.
const DefaultMaxErrorBodyBytes int64 = 1 << 20

// builder holds the parameters used to construct an Executor.
type builder struct {
	Client            *http.Client
	Logger            *zerolog.Logger
	Metrics           *Metrics
	TracerProvider    trace.TracerProvider
	MaxErrorBodyBytes int64
}

type Option func(*builder) error

// WithHTTPClient sets the http.Client every call is sent through. The client
// timeout is left to the caller; the executor applies the configured
// response timeout per call.
func WithHTTPClient(c *http.Client) Option {
	return func(b *builder) error {
		if c == nil {
			return ErrOptNilClient
		}
		b.Client = c
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *builder) error {
		b.Logger = &logger
		return nil
	}
}

// WithMetrics records call outcomes on m. See NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(b *builder) error {
		b.Metrics = m
		return nil
	}
}

// WithTracerProvider sets the provider spans are started from. Defaults to
// the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *builder) error {
		if tp == nil {
			return ErrOptNilTracerProvider
		}
		b.TracerProvider = tp
		return nil
	}
}

func WithMaxErrorBodyBytes(n int64) Option {
	return func(b *builder) error {
		if n <= 0 {
			return ErrOptInvalidBodyLimit
		}
		b.MaxErrorBodyBytes = n
		return nil
	}
}

// call holds the per-call parameters.
type call struct {
	handle  *CancellationHandle
	headers http.Header
	onToken stream.OnToken
}

type CallOption func(*call)

func newCall(opts []CallOption) *call {
	c := &call{headers: http.Header{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCancellation wires h to the call.
func WithCancellation(h *CancellationHandle) CallOption {
	return func(c *call) {
		c.handle = h
	}
}

// WithHeader sets a header for this call only, overriding defaults.
func WithHeader(key, value string) CallOption {
	return func(c *call) {
		c.headers.Set(key, value)
	}
}

func WithHeaders(headers map[string]string) CallOption {
	return func(c *call) {
		for k, v := range headers {
			c.headers.Set(k, v)
		}
	}
}

// WithOnToken switches a POST to streaming mode: the response body is split
// into newline-delimited tokens handed to fn, and the call result is nil.
// Stream calls fn for every token before delivering it on the channel. Get,
// Put, Delete and Head ignore it.
func WithOnToken(fn stream.OnToken) CallOption {
	return func(c *call) {
		c.onToken = fn
	}
}

// Streaming reports whether opts put a POST in streaming mode.
func Streaming(opts ...CallOption) bool {
	return newCall(opts).onToken != nil
}
