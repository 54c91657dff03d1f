package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrProvider indicates that the model provider could not produce a
	// completion (network, auth, quota, malformed response). Fatal for the
	// current run; the run's working history is discarded.
	ErrProvider = errors.New("provider completion failed")

	// ErrNoResponse indicates a run finished without producing any message
	ErrNoResponse = errors.New("no response generated")

	// ErrMaxIterations indicates the tool-calling loop hit its iteration cap
	ErrMaxIterations = errors.New("max tool iterations reached")

	// ErrRateLimitExceeded indicates the agent rejected a turn due to rate limiting
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)
