package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExportInProgress indicates an export of the same kind is already running.
	ErrExportInProgress = errors.New("export in progress")

	// Retrieval Errors.

	// ErrRateLimited indicates the remote API answered with HTTP 429.
	// It is handled inside the call executor while attempts remain.
	ErrRateLimited = errors.New("rate limited")

	// ErrRetriesExhausted indicates every attempt of a call was rate limited.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnknownCallFailure indicates a non-retryable call failure: any
	// non-2xx status other than 429, a missing success body, a transport
	// error or an API-level error response.
	ErrUnknownCallFailure = errors.New("unknown call failure")

	// ErrCancelled indicates the caller aborted the retrieval.
	ErrCancelled = errors.New("cancelled")

	// Decoding Errors.

	// ErrInvalidEnvelopeType indicates a payload decoded as a message did
	// not carry "type":"message". Always fatal to the enclosing decode.
	ErrInvalidEnvelopeType = errors.New("invalid message envelope type")

	// ErrEncodingUnsupported indicates an attempt to serialise a read-only type.
	ErrEncodingUnsupported = errors.New("encoding not supported")
)

// IsRetrievalFailure reports whether err is one of the terminal call failures.
func IsRetrievalFailure(err error) bool {
	return errors.Is(err, ErrRetriesExhausted) ||
		errors.Is(err, ErrUnknownCallFailure) ||
		errors.Is(err, ErrRateLimited)
}

// IsCancelled reports whether err was caused by caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
