package transport

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
)

// ProgressFn receives whole percentages derived from acknowledged bytes.
// Transports never report from bytes merely queued for send, so values
// cannot regress and cannot reach 100 before the remote endpoint has
// acknowledged the final byte.
type ProgressFn func(progress int)

// File is the transport-side view of the payload: enough metadata to
// derive a resume fingerprint plus a seekable content reader, so a chunk
// can be re-read on retry and a resumed transfer can start mid-file.
type File struct {
	Name    string
	Size    int64
	ModTime time.Time
	Content io.ReadSeeker
}

var ErrCredentialsExpired = errors.New("resumable credentials expired")

// statusError marks a non-2xx response so RetryIf can tell transient
// remote trouble from requests that will never succeed.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote endpoint returned status %d", e.code)
}

func isTransient(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.code == 408, statusErr.code == 429:
			return true
		case statusErr.code >= 500:
			return true
		default:
			return false
		}
	}

	// network level failures (refused, reset, timeouts) are transient
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func percentage(acked int64, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(acked * 100 / total)
}

// countingReader invokes the progress callback as bytes are read by the
// http client. Used by the direct transport only, where "read by the
// client" is the closest available proxy for transfer progress.
type countingReader struct {
	reader   io.Reader
	count    int64
	total    int64
	progress ProgressFn
}

func (r *countingReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.count += int64(n)
	if r.progress != nil && n > 0 {
		r.progress(percentage(r.count, r.total))
	}
	return
}
