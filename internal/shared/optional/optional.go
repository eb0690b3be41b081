// Package optional provides a set/unset marker for partial updates.
//
// A Value decoded from JSON is set whenever its key is present in the
// document, including when the value is empty or null, and unset when the
// key is absent. This lets PATCH handlers tell "clear this field" apart from
// "leave it alone".
package optional

import "encoding/json"

type Value[T any] struct {
	value T
	set   bool
}

// Of returns a set Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// None returns an unset Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

func (v Value[T]) IsSet() bool {
	return v.set
}

// Get returns the held value and whether it was set.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

// OrElse returns the held value when set, fallback otherwise.
func (v Value[T]) OrElse(fallback T) T {
	if v.set {
		return v.value
	}
	return fallback
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.set = true
	if string(data) == "null" {
		var zero T
		v.value = zero
		return nil
	}
	return json.Unmarshal(data, &v.value)
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}
