package repository

import "errors"

// NotFoundError is an error type for when a resource is not found.
type NotFoundError struct {
	message string
}

// Error returns the error message.
func (e NotFoundError) Error() string {
	return e.message
}

// ErrDuplicate is returned when a recipe with the same dedup key is already stored.
var ErrDuplicate = errors.New("recipe already exists")

// NewNotFoundError returns a NotFoundError carrying message.
func NewNotFoundError(message string) error {
	return NotFoundError{message: message}
}
