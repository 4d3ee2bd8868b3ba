package pkgcache

import (
	"context"
	"time"
)

// Temporary is implemented by errors that represent a transient,
// retry-worthy failure (a dropped connection, a read timeout). Errors
// not implementing it are treated as permanent: HTTP-status errors are
// assumed to have already been retried by a lower middleware layer, per
// §4.3's retry policy.
type Temporary interface {
	Temporary() bool
}

func isTemporary(err error) bool {
	t, ok := err.(Temporary)
	return ok && t.Temporary()
}

// RetryPolicy governs GetOrFetchWithRetry's backoff: up to MaxAttempts
// calls to fetch, doubling Backoff after each temporary failure.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy performs up to 3 attempts with exponential backoff
// starting at one second.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: time.Second}

// retry runs fn up to policy.MaxAttempts times, retrying only when fn's
// error satisfies Temporary, and doubling the backoff delay between
// attempts. If ctx is cancelled during a delay, retry returns ctx.Err().
func retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Backoff

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporary(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
