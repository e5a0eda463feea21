package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed request parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFetchFailed signals a catalog transport failure (distinct from an empty result).
	ErrFetchFailed = errors.New("catalog fetch failed")
	// ErrImageTooLarge signals an upload exceeding the size limit.
	ErrImageTooLarge = errors.New("image too large")
	// ErrUnsupportedImage signals an upload in a format the service does not accept.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrSessionNotFound signals an unknown or expired search session.
	ErrSessionNotFound = errors.New("session not found")
)

// FetchError wraps ErrFetchFailed with the collection that failed.
type FetchError struct {
	Collection string // "products", "reviews", "categories", "suggestions"
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFetchFailed.Error(), e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return ErrFetchFailed }

// NewFetchError creates a fetch error for one collection.
func NewFetchError(collection string, err error) error {
	return &FetchError{Collection: collection, Err: err}
}
