package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error Code
// 000 - 099: General errors
const (
	ECUnknown         = 000
	ECMarshalFailed   = 001
	ECUnmarshalFailed = 002
	ECIOError         = 003
)

// 100 - 199: Argument errors, raised before any network activity
const (
	ECArgumentNull = iota + 100
	ECInvalidArgument
)

// 200 - 299: Transport errors
const (
	ECTransport = iota + 200
)

// 300 - 399: Application errors reported by the remote endpoint
const (
	ECApplication = iota + 300
	ECHTTPStatus
)

// Error is the single error type surfaced by the SDK. Code classifies the
// failure, StatusCode carries the HTTP status when a response was received.
type Error struct {
	Code       int      `json:"code"`
	StatusCode int      `json:"status_code,omitempty"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	// Value is the extracted `error` field of a structured error body, or the
	// deserialized body itself for other non-2xx responses.
	Value    any    `json:"value,omitempty"`
	Body     []byte `json:"-"`
	internal error
}

var (
	ErrArgumentNull    = New(ECArgumentNull, "argument is null or empty")
	ErrInvalidArgument = New(ECInvalidArgument, "invalid argument")
	ErrTransport       = New(ECTransport, "transport failure")
	ErrApplication     = New(ECApplication, "application error")
	ErrHTTPStatus      = New(ECHTTPStatus, "unexpected http status")
	ErrMarshalFailed   = New(ECMarshalFailed, "marshal failed")
	ErrUnmarshalFailed = New(ECUnmarshalFailed, "unmarshal failed")
)

func New(code int, message string, details ...string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ArgumentNull reports a missing required parameter.
func ArgumentNull(name string) *Error {
	return New(ECArgumentNull, fmt.Sprintf("ArgumentNullException: %s is null or empty", name))
}

func InvalidArgument(message string) *Error {
	return New(ECInvalidArgument, message)
}

// Transport wraps a failure of the underlying HTTP round trip, including
// timeouts and aborts. The message is the transport's own message.
func Transport(err error) *Error {
	if err == nil {
		return nil
	}
	return New(ECTransport, err.Error()).Warp(err)
}

// Application builds the error for a response body carrying an `error` field.
// The message is the field value itself.
func Application(status int, value any, body []byte) *Error {
	e := New(ECApplication, stringify(value))
	e.StatusCode = status
	e.Value = value
	e.Body = body
	return e
}

// HTTPStatus builds the error for a non-2xx response without a structured
// error body.
func HTTPStatus(status int, value any, body []byte) *Error {
	e := New(ECHTTPStatus, fmt.Sprintf("%d %s", status, http.StatusText(status)))
	e.StatusCode = status
	e.Value = value
	e.Body = body
	return e
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same code, so the package
// sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) ErrorWithDetails() string {
	sb := strings.Builder{}
	sb.WriteString("Error: ")
	sb.WriteString(fmt.Sprintf("  - [%d] %s\n", e.Code, e.Message))
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("  - Status: %d\n", e.StatusCode))
	}
	if len(e.Details) > 0 {
		sb.WriteString("  - Details:\n")
		for _, detail := range e.Details {
			sb.WriteString(fmt.Sprintf("    - %s\n", detail))
		}
	}
	if e.internal != nil {
		sb.WriteString("  - Internal Error: ")
		sb.WriteString(e.internal.Error())
	}
	return sb.String()
}

func (e *Error) Clone() *Error {
	return &Error{
		Code:       e.Code,
		StatusCode: e.StatusCode,
		Message:    e.Message,
		Details:    append([]string{}, e.Details...),
		Value:      e.Value,
		Body:       append([]byte(nil), e.Body...),
		internal:   e.internal,
	}
}

func (e *Error) WithCode(code int) *Error {
	if e == nil {
		return nil
	}
	e.Code = code
	return e
}

func (e *Error) WithMessage(message string) *Error {
	if e == nil {
		return nil
	}
	e.Message = message
	return e
}

func (e *Error) WithDetails(details ...string) *Error {
	if e == nil {
		return nil
	}
	e.Details = append(e.Details, details...)
	return e
}

func (e *Error) Warp(err error) *Error {
	if e == nil {
		return nil
	}
	if err == nil {
		return e
	}
	e.internal = err
	return e
}

func (e *Error) Unwrap() error {
	return e.internal
}

func (e Error) ToHTTPError() *HTTPError {
	he := &HTTPError{
		Code:       e.Code,
		StatusCode: e.StatusCode,
		Message:    e.Message,
		Details:    e.Details,
	}
	if e.internal != nil && e.internal.Error() != e.Message {
		he.Cause = e.internal.Error()
	}
	return he
}

func (e Error) MarshalAndWriteTo(w io.Writer) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
