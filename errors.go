package biotest

import (
	"github.com/dargueta/biotest/errors"
)

// Configuration errors. These are detected before any I/O is issued.
var ErrInvalidParameters = errors.NewOfClass(
	errors.ClassConfig, errors.EINVAL, "invalid run parameters")
var ErrConflictingModes = ErrInvalidParameters.WithMessage(
	"'direct' and 'buffered' are mutually exclusive")
var ErrMisalignedBlockSize = ErrInvalidParameters.WithMessage(
	"block size is not a multiple of the device's transfer size")

// Resource errors.
var ErrResourceAllocation = errors.NewOfClass(
	errors.ClassResource, errors.ENOMEM, "failed to allocate I/O resources")
var ErrPoolExhausted = errors.NewOfClass(
	errors.ClassResource, errors.ENOBUFS, "pool exhausted")

// Transport errors.
var ErrIOFailed = errors.NewOfClass(
	errors.ClassTransport, errors.EIO, "I/O failed")
var ErrShortSubmit = errors.NewOfClass(
	errors.ClassTransport, errors.EAGAIN, "queue accepted fewer operations than submitted")

// ErrContentMismatch is returned when data read back doesn't match what was
// written. It is never retried.
var ErrContentMismatch = errors.NewOfClass(
	errors.ClassIntegrity, errors.EBADMSG, "readback after write error")

// Internal consistency errors. Seeing one of these means there's a bug.
var ErrDoubleRelease = errors.NewOfClass(
	errors.ClassInternal, errors.EALREADY, "double free")
var ErrAlreadyInUse = errors.NewOfClass(
	errors.ClassInternal, errors.EALREADY, "already in use")
var ErrUnknownDescriptor = errors.NewOfClass(
	errors.ClassInternal, errors.ENOENT, "in-use descriptor not found")
var ErrForeignObject = errors.NewOfClass(
	errors.ClassInternal, errors.EINVAL, "object doesn't belong to this pool")
