package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// TokenStream is a forward-only sequence of tokens read from one response
// body. A producer goroutine copies the body through a Parser into a channel;
// the channel is closed once the body ends or the read fails, and Err reports
// which of the two happened. A TokenStream cannot be restarted.
type TokenStream struct {
	tokens chan string
	done   chan struct{}
	cancel context.CancelFunc
	tap    OnToken

	once    sync.Once
	err     error
	closed  bool
	aborted bool
	mu      sync.Mutex
}

type StreamOption func(*TokenStream)

// WithTap registers fn to observe every token before it is delivered.
func WithTap(fn OnToken) StreamOption {
	return func(s *TokenStream) {
		if fn != nil {
			s.tap = fn
		}
	}
}

// NewTokenStream starts reading body. cancel aborts the request that produced
// body and is invoked by Close; it may be nil. The producer stops delivering
// tokens as soon as ctx is done.
func NewTokenStream(ctx context.Context, body io.ReadCloser, cancel context.CancelFunc, opts ...StreamOption) *TokenStream {
	if cancel == nil {
		cancel = func() {}
	}

	s := &TokenStream{
		tokens: make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
		tap:    func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.produce(ctx, body)
	return s
}

func (s *TokenStream) produce(ctx context.Context, body io.ReadCloser) {
	defer close(s.done)
	defer close(s.tokens)
	defer body.Close()

	parser := NewParser(func(token string) {
		s.tap(token)
		select {
		case s.tokens <- token:
		case <-ctx.Done():
		}
	})

	_, err := io.Copy(parser, body)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		_ = parser.Close()
	}
	s.finish(err)
}

func (s *TokenStream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && errors.Is(err, context.Canceled) {
		s.aborted = true
		err = nil
	}
	s.err = err
}

// Tokens returns the channel tokens are delivered on. It is closed when the
// stream reaches a terminal state.
func (s *TokenStream) Tokens() <-chan string {
	return s.tokens
}

// Done is closed once the producer has exited.
func (s *TokenStream) Done() <-chan struct{} {
	return s.done
}

// Err blocks until the stream is terminal and returns nil on a clean end of
// stream or the read failure otherwise.
func (s *TokenStream) Err() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Aborted blocks until the stream is terminal and reports whether Close
// stopped it before the body ended.
func (s *TokenStream) Aborted() bool {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Collect drains the stream and returns every token received.
func (s *TokenStream) Collect() ([]string, error) {
	tokens := []string{}
	for token := range s.tokens {
		tokens = append(tokens, token)
	}
	return tokens, s.Err()
}

// Close aborts the underlying request, discards undelivered tokens and waits
// for the producer to exit. Cancellation caused by Close is not reported as
// an error.
func (s *TokenStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		for range s.tokens {
		}
	})
	return s.Err()
}
