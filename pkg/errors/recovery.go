// Package errors provides panic recovery for task boundaries.
//
// Learner adapters run arbitrary code. A panic inside one fold must surface as a
// failed task rather than take down a worker that is executing many folds.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// MarshalZerologObject adds the panic details to a zerolog event.
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is meant to be deferred. It converts a panic into a PanicError stored in *err.
// If *err already holds an error, the panic is attached to it.
//
//	func (e *Evaluator) runFold(fold int) (err error) {
//	    defer errors.Recover(&err, "runFold")
//	    ...
//	}
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if *err != nil {
			*err = errors.WithSecondaryError(panicErr, *err)
			return
		}
		*err = panicErr
	}
}

// SafeExecute runs fn and converts any panic into an error.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

// SafeCall is SafeExecute for functions that also return a value.
func SafeCall[T any](operation string, fn func() (T, error)) (v T, err error) {
	defer Recover(&err, operation)
	return fn()
}
