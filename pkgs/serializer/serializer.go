// Package serializer provides the JSON encode/decode pair used on every request
// and response body. Decoding never fails: text that is not JSON comes back as
// the original string.
package serializer

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
)

const DefaultIndent = "  "

type options struct {
	pretty bool
	indent string
}

type Option func(*options)

// WithPretty toggles indented output. Serialize is pretty by default.
func WithPretty(pretty bool) Option {
	return func(o *options) {
		o.pretty = pretty
	}
}

// WithIndent sets the indent used when pretty printing.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// Deserialize parses data as a single JSON value. Numbers are kept as
// json.Number so re-serializing reproduces them exactly. A nil input yields
// nil, an empty input yields "", and anything that is not exactly one JSON
// value yields string(data).
func Deserialize(data []byte) any {
	if data == nil {
		return nil
	}
	if len(data) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(data)
	}
	if _, err := dec.Token(); err != io.EOF {
		return string(data)
	}
	return v
}

func DeserializeString(s string) any {
	return Deserialize([]byte(s))
}

// Serialize encodes v as JSON. time.Time values encode as RFC 3339 text.
// []byte and json.RawMessage are treated as already-serialized JSON and only
// re-indented or compacted. A nil v yields (nil, nil).
func Serialize(v any, opts ...Option) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	o := options{pretty: true, indent: DefaultIndent}
	for _, opt := range opts {
		opt(&o)
	}

	var raw []byte
	switch val := v.(type) {
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	}

	if raw != nil {
		buf := &bytes.Buffer{}
		var err error
		if o.pretty {
			err = json.Indent(buf, raw, "", o.indent)
		} else {
			err = json.Compact(buf, raw)
		}
		if err != nil {
			return nil, errors.ErrMarshalFailed.Clone().
				WithDetails("payload is not valid JSON").
				Warp(err)
		}
		return buf.Bytes(), nil
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if o.pretty {
		enc.SetIndent("", o.indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, errors.ErrMarshalFailed.Clone().Warp(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
