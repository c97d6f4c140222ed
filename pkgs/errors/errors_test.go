package errors_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/stretchr/testify/require"
)

func TestArgumentNull(t *testing.T) {
	err := errors.ArgumentNull("request")
	require.Equal(t, "ArgumentNullException: request is null or empty", err.Error())
	require.ErrorIs(t, err, errors.ErrArgumentNull)
	require.NotErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestTransportUnwrap(t *testing.T) {
	cause := fmt.Errorf("Post \"http://localhost\": %w", context.Canceled)
	err := errors.Transport(cause)
	require.Equal(t, cause.Error(), err.Error())
	require.ErrorIs(t, err, errors.ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, errors.Transport(nil))
}

func TestApplicationMessage(t *testing.T) {
	tcs := []struct {
		name    string
		value   any
		message string
	}{
		{name: "string value", value: "model not found", message: "model not found"},
		{name: "object value", value: map[string]any{"code": "x"}, message: `{"code":"x"}`},
		{name: "null value", value: nil, message: "null"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := errors.Application(http.StatusNotFound, tc.value, []byte(`{}`))
			require.Equal(t, tc.message, err.Error())
			require.Equal(t, http.StatusNotFound, err.StatusCode)
			require.ErrorIs(t, err, errors.ErrApplication)

			var e *errors.Error
			require.True(t, stderrors.As(fmt.Errorf("wrapped: %w", err), &e))
			require.Equal(t, tc.value, e.Value)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	err := errors.HTTPStatus(http.StatusBadGateway, "upstream down", []byte("upstream down"))
	require.Equal(t, "502 Bad Gateway", err.Error())
	require.ErrorIs(t, err, errors.ErrHTTPStatus)
	require.Equal(t, "upstream down", err.Value)

	he := err.ToHTTPError()
	require.Equal(t, http.StatusBadGateway, he.StatusCode)
	require.Equal(t, errors.ECHTTPStatus, he.Code)
	require.Equal(t, "[301/502] 502 Bad Gateway", he.Error())

	te := errors.Transport(fmt.Errorf("dial tcp: %w", io.ErrUnexpectedEOF)).ToHTTPError()
	require.Equal(t, "[200] dial tcp: unexpected EOF", te.Error())
	require.Empty(t, te.Cause)

	ae := errors.InvalidArgument("bad settings").Warp(io.EOF).ToHTTPError()
	require.Equal(t, "EOF", ae.Cause)
}

func TestCloneAndDetails(t *testing.T) {
	orig := errors.New(errors.ECIOError, "io").WithDetails("a")
	clone := orig.Clone().WithDetails("b").WithMessage("changed")
	require.Equal(t, []string{"a"}, orig.Details)
	require.Equal(t, "io", orig.Message)
	require.Equal(t, []string{"a", "b"}, clone.Details)
	require.Contains(t, clone.ErrorWithDetails(), "changed")
}

func TestMarshalAndWriteTo(t *testing.T) {
	err := errors.Application(http.StatusBadRequest, "bad", []byte(`{"error":"bad"}`))
	buf := &jsonBuffer{}
	require.NoError(t, err.MarshalAndWriteTo(buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.data, &got))
	require.Equal(t, "bad", got["message"])
	require.Equal(t, "bad", got["value"])
	require.NotContains(t, got, "Body")
}

type jsonBuffer struct{ data []byte }

func (b *jsonBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
