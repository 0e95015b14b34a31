// This maps the host's errno values onto a small, stable set of names so that
// exit codes match what the kernel reported. Messages are kept here instead of
// relying on the platform's strerror so output is identical across systems.

package errors

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type Errno int

var errorMessagesByCode map[Errno]string

const EOK Errno = 0

const (
	EPERM    = Errno(unix.EPERM)
	ENOENT   = Errno(unix.ENOENT)
	EINTR    = Errno(unix.EINTR)
	EIO      = Errno(unix.EIO)
	EBADF    = Errno(unix.EBADF)
	EAGAIN   = Errno(unix.EAGAIN)
	ENOMEM   = Errno(unix.ENOMEM)
	EACCES   = Errno(unix.EACCES)
	EFAULT   = Errno(unix.EFAULT)
	ENOTBLK  = Errno(unix.ENOTBLK)
	EBUSY    = Errno(unix.EBUSY)
	EEXIST   = Errno(unix.EEXIST)
	ENODEV   = Errno(unix.ENODEV)
	EISDIR   = Errno(unix.EISDIR)
	EINVAL   = Errno(unix.EINVAL)
	EFBIG    = Errno(unix.EFBIG)
	ENOSPC   = Errno(unix.ENOSPC)
	ESPIPE   = Errno(unix.ESPIPE)
	EROFS    = Errno(unix.EROFS)
	ERANGE   = Errno(unix.ERANGE)
	ENOSYS   = Errno(unix.ENOSYS)
	EBADMSG  = Errno(unix.EBADMSG)
	ENOBUFS  = Errno(unix.ENOBUFS)
	EALREADY = Errno(unix.EALREADY)
	ENOTSUP  = Errno(unix.ENOTSUP)
)

var ErrNotPermitted = New(EPERM)
var ErrNotFound = New(ENOENT)
var ErrIOFailed = New(EIO)
var ErrInvalidFileDescriptor = New(EBADF)
var ErrOutOfMemory = New(ENOMEM)
var ErrBlockDeviceRequired = New(ENOTBLK)
var ErrBusy = New(EBUSY)
var ErrPermissionDenied = New(EACCES)
var ErrNoDevice = New(ENODEV)
var ErrInvalidArgument = New(EINVAL)
var ErrNoSpaceOnDevice = New(ENOSPC)
var ErrReadOnlyFileSystem = New(EROFS)
var ErrNotImplemented = New(ENOSYS)
var ErrNoBufferSpace = New(ENOBUFS)
var ErrAlreadyInProgress = New(EALREADY)
var ErrNotSupported = New(ENOTSUP)

func init() {
	errorMessagesByCode = make(map[Errno]string, 32)
	errorMessagesByCode[EOK] = "Success"
	errorMessagesByCode[EPERM] = "Operation not permitted"
	errorMessagesByCode[ENOENT] = "No such file or directory"
	errorMessagesByCode[EINTR] = "Interrupted system call"
	errorMessagesByCode[EIO] = "Input/output error"
	errorMessagesByCode[EBADF] = "Bad file descriptor"
	errorMessagesByCode[EAGAIN] = "Resource temporarily unavailable"
	errorMessagesByCode[ENOMEM] = "Cannot allocate memory"
	errorMessagesByCode[EACCES] = "Permission denied"
	errorMessagesByCode[EFAULT] = "Bad address"
	errorMessagesByCode[ENOTBLK] = "Block device required"
	errorMessagesByCode[EBUSY] = "Device or resource busy"
	errorMessagesByCode[EEXIST] = "File exists"
	errorMessagesByCode[ENODEV] = "No such device"
	errorMessagesByCode[EISDIR] = "Is a directory"
	errorMessagesByCode[EINVAL] = "Invalid argument"
	errorMessagesByCode[EFBIG] = "File too large"
	errorMessagesByCode[ENOSPC] = "No space left on device"
	errorMessagesByCode[ESPIPE] = "Illegal seek"
	errorMessagesByCode[EROFS] = "Read-only file system"
	errorMessagesByCode[ERANGE] = "Numerical result out of range"
	errorMessagesByCode[ENOSYS] = "Function not implemented"
	errorMessagesByCode[EBADMSG] = "Bad message"
	errorMessagesByCode[ENOBUFS] = "No buffer space available"
	errorMessagesByCode[EALREADY] = "Operation already in progress"
	errorMessagesByCode[ENOTSUP] = "Operation not supported"
}

// StrError returns the message for an errno code. Codes without an entry fall
// back to the host's description.
func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	if code > 0 {
		return fmt.Sprintf("%s (errno %d)", unix.Errno(code).Error(), int(code))
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
