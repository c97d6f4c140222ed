// Package sdk implements the request executor shared by the OpenAI and Ollama
// facades: one HTTP client, one configuration slot, and the error
// normalization every call goes through.
package sdk

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/serializer"
	"github.com/ChiaYuChang/sharpai/pkgs/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ChiaYuChang/sharpai/pkgs/sdk"

// Executor sends HTTP calls on behalf of the facades. It is safe for
// concurrent use; every call reads the configuration exactly once, so an
// update made while a call is in flight only affects later calls.
type Executor struct {
	config     atomic.Pointer[Configuration]
	client     *http.Client
	logger     zerolog.Logger
	tracer     trace.Tracer
	metrics    *Metrics
	maxErrBody int64
}

func NewExecutor(cfg *Configuration, opts ...Option) (*Executor, error) {
	if cfg == nil {
		return nil, errors.ArgumentNull("config")
	}

	b := &builder{MaxErrorBodyBytes: DefaultMaxErrorBodyBytes}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if b.Client == nil {
		b.Client = &http.Client{Transport: http.DefaultTransport}
	}

	if b.Logger == nil {
		logger := zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
		b.Logger = &logger
	}

	if b.TracerProvider == nil {
		b.TracerProvider = otel.GetTracerProvider()
	}

	e := &Executor{
		client:     b.Client,
		logger:     *b.Logger,
		tracer:     b.TracerProvider.Tracer(tracerName),
		metrics:    b.Metrics,
		maxErrBody: b.MaxErrorBodyBytes,
	}
	e.config.Store(cfg)
	return e, nil
}

// Config returns the current configuration snapshot.
func (e *Executor) Config() *Configuration {
	return e.config.Load()
}

// SetConfig replaces the configuration for subsequent calls.
func (e *Executor) SetConfig(cfg *Configuration) error {
	if cfg == nil {
		return errors.ArgumentNull("config")
	}
	e.config.Store(cfg)
	return nil
}

// UpdateConfig derives a new configuration from the current one. Concurrent
// updates are serialized by retrying fn against the latest snapshot.
func (e *Executor) UpdateConfig(fn func(*Configuration) (*Configuration, error)) error {
	for {
		current := e.config.Load()
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return errors.ArgumentNull("config")
		}
		if e.config.CompareAndSwap(current, next) {
			return nil
		}
	}
}

// Get sends a GET and returns the deserialized response body.
func (e *Executor) Get(ctx context.Context, url string, opts ...CallOption) (any, error) {
	return e.buffered(ctx, http.MethodGet, url, nil, newCall(opts))
}

// Put sends body as JSON and returns the deserialized response body.
func (e *Executor) Put(ctx context.Context, url string, body any, opts ...CallOption) (any, error) {
	return e.buffered(ctx, http.MethodPut, url, body, newCall(opts))
}

// Post sends body as JSON. Without WithOnToken it returns the deserialized
// response body. With WithOnToken the body is delivered as tokens while it
// arrives and Post returns nil once the stream ends.
func (e *Executor) Post(ctx context.Context, url string, body any, opts ...CallOption) (any, error) {
	c := newCall(opts)
	if c.onToken != nil {
		return nil, e.streamed(ctx, url, body, c)
	}
	return e.buffered(ctx, http.MethodPost, url, body, c)
}

// Delete sends a DELETE, with body as JSON when it is not nil, and reports
// true on a 2xx response.
func (e *Executor) Delete(ctx context.Context, url string, body any, opts ...CallOption) (bool, error) {
	return e.discarded(ctx, http.MethodDelete, url, body, newCall(opts))
}

// Head reports true on a 2xx response.
func (e *Executor) Head(ctx context.Context, url string, opts ...CallOption) (bool, error) {
	return e.discarded(ctx, http.MethodHead, url, nil, newCall(opts))
}

// Stream sends body as a JSON POST and returns the response as a
// TokenStream. Errors raised before the body starts (argument, transport and
// non-2xx) are returned directly; later read failures surface through the
// stream's Err.
func (e *Executor) Stream(ctx context.Context, url string, body any, opts ...CallOption) (*stream.TokenStream, error) {
	c := newCall(opts)
	x, err := e.send(ctx, http.MethodPost, url, body, c)
	if err != nil {
		return nil, err
	}

	tap := e.metrics.token
	if c.onToken != nil {
		tap = func(token string) {
			e.metrics.token(token)
			c.onToken(token)
		}
	}

	ts := stream.NewTokenStream(x.ctx, x.resp.Body, func() {
		x.cancel(context.Canceled)
	}, stream.WithTap(tap))

	go func() {
		if err := ts.Err(); err != nil {
			_ = x.fail(transportError(x.ctx, x.timeoutMs, err))
			return
		}
		if ts.Aborted() {
			x.abort()
			return
		}
		x.succeed()
	}()
	return ts, nil
}

func (e *Executor) buffered(ctx context.Context, method, url string, body any, c *call) (any, error) {
	x, err := e.send(ctx, method, url, body, c)
	if err != nil {
		return nil, err
	}
	defer x.resp.Body.Close()

	data, err := io.ReadAll(x.resp.Body)
	if err != nil {
		return nil, x.fail(transportError(x.ctx, x.timeoutMs, err))
	}

	x.succeed()
	return serializer.Deserialize(data), nil
}

func (e *Executor) discarded(ctx context.Context, method, url string, body any, c *call) (bool, error) {
	x, err := e.send(ctx, method, url, body, c)
	if err != nil {
		return false, err
	}
	defer x.resp.Body.Close()

	if _, err := io.Copy(io.Discard, x.resp.Body); err != nil {
		return false, x.fail(transportError(x.ctx, x.timeoutMs, err))
	}

	x.succeed()
	return true, nil
}

func (e *Executor) streamed(ctx context.Context, url string, body any, c *call) error {
	x, err := e.send(ctx, http.MethodPost, url, body, c)
	if err != nil {
		return err
	}
	defer x.resp.Body.Close()

	parser := stream.NewParser(func(token string) {
		e.metrics.token(token)
		c.onToken(token)
	})

	if _, err := io.Copy(parser, x.resp.Body); err != nil {
		return x.fail(transportError(x.ctx, x.timeoutMs, err))
	}
	_ = parser.Close()

	x.succeed()
	return nil
}

// exchange is one call after its request has been sent.
type exchange struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	resp      *http.Response
	span      trace.Span
	logger    zerolog.Logger
	metrics   *Metrics
	method    string
	url       string
	timeoutMs int
	start     time.Time
}

// send builds the request from one configuration snapshot, sends it and
// waits for the response headers. A non-2xx response is drained, normalized
// and returned as an error.
func (e *Executor) send(ctx context.Context, method, rawURL string, body any, c *call) (*exchange, error) {
	cfg := e.config.Load()

	target, err := resolveURL(cfg.Endpoint(), rawURL)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if !IsNil(body) {
		data, err := serializer.Serialize(body, serializer.WithPretty(false))
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(data)
	}

	requestID := c.headers.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "sharpai "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			attribute.String("sharpai.request_id", requestID),
		))

	reqCtx, cancel := context.WithCancelCause(ctx)
	req, err := http.NewRequestWithContext(reqCtx, method, target, payload)
	if err != nil {
		cancel(nil)
		span.End()
		return nil, errors.InvalidArgument("failed to build request").
			WithDetails(err.Error()).
			Warp(err)
	}

	x := &exchange{
		ctx:    reqCtx,
		cancel: cancel,
		span:   span,
		logger: e.logger.Level(cfg.LogLevel()).With().
			Str("method", method).
			Str("url", target).
			Str("request_id", requestID).
			Logger(),
		metrics:   e.metrics,
		method:    method,
		url:       target,
		timeoutMs: cfg.TimeoutMs(),
		start:     time.Now(),
	}

	if c.handle != nil {
		c.handle.wire(func() {
			x.logger.Debug().Msgf("Request aborted to %s.", target)
			cancel(context.Canceled)
		})
	}

	for key, values := range cfg.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}
	if payload != nil {
		req.Header.Set(HeaderContentType, MIMEApplicationJSON)
	}
	req.Header.Set(HeaderRequestID, requestID)

	x.logger.Trace().Msg("Sending request")

	timer := time.AfterFunc(cfg.Timeout(), func() {
		cancel(ErrResponseTimeout)
	})
	resp, err := e.client.Do(req)
	timer.Stop()
	if err != nil {
		return nil, x.fail(transportError(reqCtx, x.timeoutMs, err))
	}

	x.span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxErrBody))
		if err != nil {
			return nil, x.fail(transportError(reqCtx, x.timeoutMs, err))
		}
		return nil, x.fail(statusError(resp.StatusCode, data))
	}

	x.resp = resp
	return x, nil
}

func (x *exchange) succeed() {
	x.cancel(nil)
	elapsed := time.Since(x.start)

	x.span.SetStatus(codes.Ok, "")
	x.span.End()
	x.metrics.observe(x.method, OutcomeSuccess, elapsed)
	x.logger.Debug().
		Int("status", x.resp.StatusCode).
		Dur("elapsed", elapsed).
		Msgf("Success reported from %s: %d", x.url, x.resp.StatusCode)
}

// abort records a call its caller stopped before the body ended.
func (x *exchange) abort() {
	x.cancel(nil)
	elapsed := time.Since(x.start)

	x.span.SetStatus(codes.Error, "aborted")
	x.span.End()
	x.metrics.observe(x.method, OutcomeAborted, elapsed)
	x.logger.Debug().
		Dur("elapsed", elapsed).
		Msgf("Request aborted to %s.", x.url)
}

func (x *exchange) fail(err *errors.Error) error {
	x.cancel(nil)
	elapsed := time.Since(x.start)

	x.span.RecordError(err)
	x.span.SetStatus(codes.Error, err.Error())
	x.span.End()
	x.metrics.observe(x.method, OutcomeError, elapsed)

	event := x.logger.Warn().Dur("elapsed", elapsed).Int("code", err.Code)
	if err.StatusCode != 0 {
		event = event.Int("status", err.StatusCode)
	}
	event.Msgf("Failed to retrieve object from %s: %s", x.url, err.Error())
	return err
}

// resolveURL joins a relative path to endpoint. Absolute URLs are used as is.
func resolveURL(endpoint, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.InvalidArgument("URL cannot be null or empty.")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.InvalidArgument("malformed URL").
			WithDetails(err.Error()).
			Warp(err)
	}

	if u.IsAbs() {
		return raw, nil
	}
	return endpoint + strings.TrimPrefix(raw, "/"), nil
}
