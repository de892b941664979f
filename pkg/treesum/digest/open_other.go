//go:build !linux

package digest

import "os"

// openRead opens a file for reading. O_NOATIME is Linux-only; other
// platforms use a plain open.
func openRead(path string) (*os.File, error) {
	return os.Open(path)
}
