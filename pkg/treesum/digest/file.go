package digest

import (
	"io"
)

// readBufferSize is the buffer used when streaming file content
// through a digest.
const readBufferSize = 1 << 20

// File computes the digest of a file's content. It returns the digest,
// the number of bytes read, and any error. The byte count lets callers
// cross-check the file size they observed when deciding to digest: a
// mismatch means the file changed underfoot or the read was truncated.
//
// On Linux the file is opened with O_NOATIME where permitted, so
// verification runs do not churn access times.
func File(path string, algo Algorithm) (Digest, int64, error) {
	h := algo.New()
	if h == nil {
		return nil, 0, ErrUnknownAlgorithm
	}

	f, err := openRead(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	buf := make([]byte, readBufferSize)
	n, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return nil, n, err
	}
	return Digest(h.Sum(nil)), n, nil
}
