package errors

import (
	stderrors "errors"
	"fmt"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// Class says which part of a run an error belongs to. The driver uses it to
// decide whether a failure can be retried and how it gets reported.
type Class int

const (
	ClassUnknown Class = iota
	// ClassConfig errors are detected before any I/O is issued.
	ClassConfig
	// ClassResource errors come from failing to set up buffers, descriptors or
	// the completion queue.
	ClassResource
	// ClassTransport errors come from an individual read, write or submission.
	ClassTransport
	// ClassIntegrity errors mean data was read back successfully but didn't
	// match what was written.
	ClassIntegrity
	// ClassInternal errors are logic errors such as releasing a buffer twice.
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "configuration"
	case ClassResource:
		return "resource"
	case ClassTransport:
		return "transport"
	case ClassIntegrity:
		return "integrity"
	case ClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// DriverError is a wrapper around system errno codes, with a customizable error message.
type DriverError interface {
	error
	Errno() Errno
	Class() Class
	Unwrap() error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type driverError struct {
	errno         Errno
	class         Class
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e driverError) Errno() Errno {
	return e.errno
}

func (e driverError) Class() Class {
	return e.class
}

func (e driverError) Unwrap() error {
	return e.originalError
}

// WithMessage returns a new error with `message` appended to this one's. The
// errno code and class are preserved, and the new error unwraps to this one.
func (e driverError) WithMessage(message string) DriverError {
	return driverError{
		errno:         e.errno,
		class:         e.class,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

// Wrap returns a new error that matches both this error and `err` with
// [errors.Is] and [errors.As].
func (e driverError) Wrap(err error) DriverError {
	return driverError{
		errno:         e.errno,
		class:         e.class,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// New creates a new [DriverError] with a default message derived from the
// system's error code.
func New(errnoCode Errno) DriverError {
	return driverError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

// NewWithMessage creates a new DriverError from a system error code with a
// custom message.
func NewWithMessage(errnoCode Errno, message string) DriverError {
	return driverError{
		errno:   errnoCode,
		message: fmt.Sprintf("%s: %s", StrError(errnoCode), message),
	}
}

// NewOfClass creates a DriverError belonging to `class`. `message` replaces the
// default errno message entirely.
func NewOfClass(class Class, errnoCode Errno, message string) DriverError {
	return driverError{
		errno:   errnoCode,
		class:   class,
		message: message,
	}
}

// ErrnoOf returns the most specific errno code found in `err`'s chain. A raw
// system errno (e.g. from a failed write(2)) wins over the code of any
// DriverError wrapping it. Errors that carry no code at all give EIO.
func ErrnoOf(err error) Errno {
	if err == nil {
		return EOK
	}

	var sysErr syscall.Errno
	if stderrors.As(err, &sysErr) && sysErr != 0 {
		return Errno(sysErr)
	}

	var driverErr DriverError
	if stderrors.As(err, &driverErr) {
		return driverErr.Errno()
	}
	return EIO
}

// HasErrno returns true if any error in `err`'s chain carries an errno code.
func HasErrno(err error) bool {
	var sysErr syscall.Errno
	var driverErr DriverError
	return stderrors.As(err, &sysErr) || stderrors.As(err, &driverErr)
}

// ClassOf returns the class of the outermost classified DriverError in `err`'s
// chain, or ClassUnknown.
func ClassOf(err error) Class {
	for err != nil {
		driverErr, ok := err.(DriverError)
		if ok && driverErr.Class() != ClassUnknown {
			return driverErr.Class()
		}

		if multiErr, ok := err.(*multierror.Error); ok {
			for _, inner := range multiErr.Errors {
				if class := ClassOf(inner); class != ClassUnknown {
					return class
				}
			}
			return ClassUnknown
		}
		err = stderrors.Unwrap(err)
	}
	return ClassUnknown
}
