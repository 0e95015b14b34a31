//go:build linux

package filehandle

import (
	"os"

	"golang.org/x/sys/unix"
)

const directIOSupported = true

func directFlag() int {
	return unix.O_DIRECT
}

// logicalSectorSize asks the kernel for the smallest unit a block device can
// transfer. Regular files report 0, meaning no constraint beyond the defaults.
func logicalSectorSize(file *os.File) (uint, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode()&os.ModeDevice == 0 || info.Mode()&os.ModeCharDevice != 0 {
		return 0, nil
	}

	size, err := unix.IoctlGetInt(int(file.Fd()), unix.BLKSSZGET)
	if err != nil {
		return 0, err
	}
	return uint(size), nil
}

func syncData(fd int) error {
	return unix.Fdatasync(fd)
}
