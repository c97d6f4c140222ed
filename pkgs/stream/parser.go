// Package stream turns a streamed response body into line-delimited tokens.
package stream

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

var ErrParserClosed = errors.New("stream: write to closed parser")

// OnToken receives one token per newline-delimited fragment, in arrival order.
type OnToken func(token string)

// Parser is an io.WriteCloser that splits the bytes written to it on '\n'
// and hands every fragment, trimmed of surrounding whitespace, to OnToken.
// Blank fragments are delivered too; filtering is up to the callback.
//
// A fragment that spans several writes is held until its newline arrives, so
// tokens are only ever split at newline boundaries. Close flushes an
// unterminated tail and finalizes the parser.
type Parser struct {
	mu      sync.Mutex
	onToken OnToken
	pending []byte
	closed  bool
}

func NewParser(onToken OnToken) *Parser {
	if onToken == nil {
		onToken = func(string) {}
	}
	return &Parser{onToken: onToken}
}

func (p *Parser) Write(chunk []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrParserClosed
	}

	p.pending = append(p.pending, chunk...)
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		p.onToken(strings.TrimSpace(string(p.pending[:i])))
		p.pending = p.pending[i+1:]
	}

	// release the consumed prefix once nothing is pending
	if len(p.pending) == 0 {
		p.pending = nil
	}
	return len(chunk), nil
}

// Close emits the unterminated tail, if any, and rejects further writes.
// Calling Close more than once is a no-op.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if len(p.pending) > 0 {
		p.onToken(strings.TrimSpace(string(p.pending)))
		p.pending = nil
	}
	return nil
}
