// Package maybe holds an optional value. None means a path could not be
// evaluated because an intermediate link was nil; Some(zero) means it was
// evaluated and the value itself is the zero value.
package maybe

import "fmt"

type Maybe[T any] struct {
	value    T
	hasValue bool
}

func Some[T any](value T) Maybe[T] {
	return Maybe[T]{value: value, hasValue: true}
}

func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

func (m Maybe[T]) HasValue() bool {
	return m.hasValue
}

// Value panics when m has no value.
func (m Maybe[T]) Value() T {
	if !m.hasValue {
		panic("maybe: Value called on None")
	}
	return m.value
}

func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.hasValue
}

func (m Maybe[T]) ValueOrDefault() T {
	return m.value
}

func (m Maybe[T]) ValueOr(fallback T) T {
	if !m.hasValue {
		return fallback
	}
	return m.value
}

func (m Maybe[T]) String() string {
	if !m.hasValue {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", m.value)
}
