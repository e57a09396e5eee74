package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the provided input is invalid
	// (empty user ID or malformed content).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates that embedding generation failed or
	// timed out. The store is never mutated when this is returned.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrStorageOperation indicates that a metadata store operation failed.
	ErrStorageOperation = errors.New("storage operation failed")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Store",
//	    Err: ErrEmbeddingFailed,
//	}
//	// Error() returns: "membank: Store: embedding generation failed"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "membank: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("membank: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("Store", err)
//	}
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
