//go:build linux

package digest

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// openRead opens a file for reading without updating its access time.
// The kernel refuses O_NOATIME for files the caller does not own, so
// fall back to a plain open in that case.
func openRead(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOATIME, 0)
	if errors.Is(err, os.ErrPermission) {
		return os.Open(path)
	}
	return f, err
}
