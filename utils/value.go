package utils

import "github.com/pkg/errors"

// AssertType asserts that from holds a T.
func AssertType[T any](from interface{}) (T, error) {
	var zero T
	asserted, ok := from.(T)
	if !ok {
		return zero, NewUnexpectedTypeError[T](from)
	}
	return asserted, nil
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError[T any](actual interface{}) error {
	var expected T
	return errors.Errorf("expected %T but got %T", expected, actual)
}
