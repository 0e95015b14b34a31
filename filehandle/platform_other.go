//go:build !linux

package filehandle

import (
	"os"

	"golang.org/x/sys/unix"
)

const directIOSupported = false

func directFlag() int {
	return 0
}

func logicalSectorSize(file *os.File) (uint, error) {
	return 0, nil
}

func syncData(fd int) error {
	return unix.Fsync(fd)
}
