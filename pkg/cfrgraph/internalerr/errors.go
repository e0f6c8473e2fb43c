package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrFetch marks a failed upstream request (transport error or non-2xx status).
	ErrFetch = errors.New("upstream fetch failed")
	// ErrMalformed marks source data that could not be decoded.
	ErrMalformed = errors.New("malformed source data")
)
