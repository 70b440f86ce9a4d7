package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks network or HTTP-level failures retrieving the archive.
	ErrFetch = errors.New("archive: fetch failed")
	// ErrDecompress marks a corrupt or unreadable archive container.
	ErrDecompress = errors.New("archive: decompress failed")
)

// HTTPStatusError is returned when the archive source answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("archive: fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *HTTPStatusError) Unwrap() error {
	return ErrFetch
}
