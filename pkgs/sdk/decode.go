package sdk

import (
	"encoding/json"
	"reflect"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
)

// Decode converts a value returned by Get, Put or Post into T. A nil value
// decodes to nil. A raw-text fallback body cannot be decoded into a struct
// and fails with ErrUnmarshalFailed.
func Decode[T any](v any) (*T, error) {
	if v == nil {
		return nil, nil
	}

	if s, ok := v.(string); ok {
		return nil, errors.ErrUnmarshalFailed.Clone().
			WithDetails("response is not a JSON document", s)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.ErrMarshalFailed.Clone().Warp(err)
	}

	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.ErrUnmarshalFailed.Clone().
			WithDetails(err.Error()).
			Warp(err)
	}
	return out, nil
}

// DecodeRequired is Decode for a buffered response that must carry a
// document. A null body fails with ErrUnmarshalFailed instead of decoding to
// nil.
func DecodeRequired[T any](v any) (*T, error) {
	if v == nil {
		return nil, errors.ErrUnmarshalFailed.Clone().
			WithDetails("response body is null")
	}
	return Decode[T](v)
}

// IsNil reports whether v is missing: a nil interface, a nil pointer, map,
// slice, channel or func, an empty string, or an empty byte slice such as
// json.RawMessage{}.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	case reflect.Slice:
		return rv.IsNil() || (rv.Type().Elem().Kind() == reflect.Uint8 && rv.Len() == 0)
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}
