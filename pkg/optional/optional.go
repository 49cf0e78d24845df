// Package optional models a request field that may be absent, explicitly
// null, or set to a value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value is the zero value when the field was not sent at all.
type Value[T any] struct {
	set   bool
	null  bool
	value T
}

// Some returns a present value.
func Some[T any](v T) Value[T] {
	return Value[T]{set: true, value: v}
}

// Null returns a present, explicitly null value.
func Null[T any]() Value[T] {
	return Value[T]{set: true, null: true}
}

// IsSet reports whether the field was sent, null or not.
func (v Value[T]) IsSet() bool { return v.set }

// IsNull reports whether the field was sent as null.
func (v Value[T]) IsNull() bool { return v.set && v.null }

// Get returns the value and whether it holds one.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set && !v.null
}

// Ptr returns nil for absent or null, otherwise a pointer to a copy of the value.
func (v Value[T]) Ptr() *T {
	if !v.set || v.null {
		return nil
	}
	out := v.value
	return &out
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.null = true
		var zero T
		v.value = zero
		return nil
	}
	v.null = false
	return json.Unmarshal(data, &v.value)
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set || v.null {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}
