package http

import (
	"fmt"
	"io"
)

// copyLimited copies at most limit bytes and fails if src holds more.
func copyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > limit {
		return n, fmt.Errorf("upload exceeds %d bytes", limit)
	}
	return n, nil
}
