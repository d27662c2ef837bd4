package domain

import "encoding/json"

// Optional is a patch field. Set is true when the caller supplied the field,
// Null is true when it was supplied as an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// applyTo writes the value into dst. Null is rejected for required fields.
func (o Optional[T]) applyTo(dst *T) bool {
	if !o.Set || o.Null {
		return false
	}
	*dst = o.Value
	return true
}

// applyToPtr writes the value into a nullable field, clearing it on explicit null.
func (o Optional[T]) applyToPtr(dst **T) bool {
	if !o.Set {
		return false
	}
	if o.Null {
		*dst = nil
		return true
	}
	v := o.Value
	*dst = &v
	return true
}
