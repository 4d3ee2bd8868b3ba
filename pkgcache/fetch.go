package pkgcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// temporaryError marks a network-layer failure as retry-worthy.
type temporaryError struct{ err error }

func (e *temporaryError) Error() string   { return e.err.Error() }
func (e *temporaryError) Unwrap() error   { return e.err }
func (e *temporaryError) Temporary() bool { return true }

// FetchURL returns a FetchFunc that downloads url with client, reporting
// progress through reporter against index. HTTP transport errors (a
// dropped connection, a read timeout) are marked Temporary so
// GetOrFetchWithRetry retries them; a non-2xx response is a permanent
// failure, assumed already retried by a lower middleware layer per §4.3.
func FetchURL(client *http.Client, url string, index int, key BucketKey, reporter Reporter) FetchFunc {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return func(ctx context.Context, archivePath string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return &temporaryError{err: fmt.Errorf("fetch %s: %w", url, err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
		}

		out, err := os.Create(archivePath)
		if err != nil {
			return fmt.Errorf("open %s: %w", archivePath, err)
		}
		defer out.Close()

		pw := &progressWriter{
			index:    index,
			key:      key,
			reporter: reporter,
			total:    resp.ContentLength,
		}
		if _, err := io.Copy(out, io.TeeReader(resp.Body, pw)); err != nil {
			return &temporaryError{err: fmt.Errorf("read body of %s: %w", url, err)}
		}
		return nil
	}
}

// progressWriter is an io.Writer whose Write calls exist only to report
// cumulative bytes downloaded so far; it never errors.
type progressWriter struct {
	index    int
	key      BucketKey
	reporter Reporter
	total    int64
	written  int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	p.reporter.OnDownloadProgress(p.index, p.key, p.written, p.total)
	return len(b), nil
}
