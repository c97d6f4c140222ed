package sdk

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/serializer"
	"github.com/tidwall/gjson"
)

// ErrResponseTimeout is matched by the transport error of a call whose
// response headers did not arrive within the configured timeout.
var ErrResponseTimeout = stderrors.New("response timeout")

type timeoutError struct {
	ms  int
	err error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("Response timeout of %dms exceeded", e.ms)
}

func (e *timeoutError) Unwrap() []error {
	return []error{ErrResponseTimeout, e.err}
}

func (e *timeoutError) Timeout() bool {
	return true
}

// transportError normalizes a round-trip failure. The cause recorded on ctx
// tells a timeout apart from an abort or a network error.
func transportError(ctx context.Context, timeoutMs int, err error) *errors.Error {
	if stderrors.Is(context.Cause(ctx), ErrResponseTimeout) {
		err = &timeoutError{ms: timeoutMs, err: err}
	}
	return errors.Transport(err)
}

// statusError normalizes a non-2xx response. A JSON object body with a truthy
// "error" field yields an application error carrying that field; anything
// else yields an HTTP status error carrying the deserialized body.
func statusError(status int, body []byte) *errors.Error {
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if doc.IsObject() {
			if field := doc.Get("error"); truthy(field) {
				return errors.Application(status, serializer.DeserializeString(field.Raw), body)
			}
		}
	}
	return errors.HTTPStatus(status, serializer.Deserialize(body), body)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return r.Exists()
}
