// File: api/errors.go
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the zio library.

package api

import "fmt"

// Common errors used across the library.
var (
	// ErrNoSpace means admission control rejected an allocation or store
	// because the configured capacity (item count or byte budget) is
	// exhausted. Recoverable: retry later or wait for space.
	ErrNoSpace = fmt.Errorf("buffer capacity exhausted")

	// ErrNoMem means the underlying allocator could not satisfy the
	// request. Propagated to the caller, never retried internally.
	ErrNoMem = fmt.Errorf("out of memory")

	// ErrBusy means the trigger's single pending slot is already
	// occupied. The caller falls back to queueing.
	ErrBusy = fmt.Errorf("trigger slot busy")

	// ErrWouldBlock is returned by non-blocking calls that found no
	// data or space.
	ErrWouldBlock = fmt.Errorf("operation would block")

	// ErrInvalidState marks a contract violation, such as a block
	// without an attached control reaching a store call.
	ErrInvalidState = fmt.Errorf("invalid state")

	// ErrDoubleFree means a block was freed twice. A programming
	// error, never a silent double-decrement.
	ErrDoubleFree = fmt.Errorf("block already freed")

	// ErrDisabled means the target instance is disabled.
	ErrDisabled = fmt.Errorf("instance disabled")

	// ErrDeferred is returned by a device I/O hook that accepted the
	// transfer and will report completion asynchronously.
	ErrDeferred = fmt.Errorf("transfer deferred")

	// ErrBadDirection means the operation does not apply to the
	// channel's direction.
	ErrBadDirection = fmt.Errorf("wrong channel direction")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeNoSpace
	ErrCodeNoMem
	ErrCodeBusy
	ErrCodeWouldBlock
	ErrCodeInvalidState
	ErrCodeConfig
	ErrCodeNotFound
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}
