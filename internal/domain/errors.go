package domain

import "errors"

var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates invalid input data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates the completion endpoint failed at the transport
	// level (non-2xx status or network error). The one automatic recovery is
	// a single blind retry at the request entrypoint.
	ErrUpstream = errors.New("upstream AI service failure")

	// ErrEmptyGeneration indicates the model reply yielded no usable content
	// after recovery parsing. Expected at some baseline rate; callers surface
	// it as a retryable upstream failure, never as a crash.
	ErrEmptyGeneration = errors.New("empty generation")
)
