//go:build darwin

package fileio

import (
	"os"

	"golang.org/x/sys/unix"
)

// F_FULLFSYNC asks the drive to flush its own cache; plain fsync on darwin
// does not. WAL durability depends on the stronger barrier, so prefer it and
// fall back only when the filesystem rejects the fcntl.
func fsyncFullBarrier(f *os.File) error {
	if _, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0); err == nil {
		return nil
	}
	return f.Sync()
}
