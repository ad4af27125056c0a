//go:build !darwin

package fileio

import "os"

func fsyncFullBarrier(f *os.File) error {
	return f.Sync()
}
