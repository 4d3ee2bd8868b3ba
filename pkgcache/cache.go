package pkgcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/a-h/solvent/storage"
)

// Extractor unpacks an archive at archivePath into destDir, which the
// caller has already created and will rename into place on success.
// Archive format decoding (`.conda`/`.tar.bz2`) is a library boundary this
// module does not implement itself; callers supply one.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// FetchFunc downloads (or otherwise produces) the raw package archive for
// a bucket, writing it to archivePath.
type FetchFunc func(ctx context.Context, archivePath string) error

// Cache is a content-addressed store of extracted package directories,
// rooted at Dir.
type Cache struct {
	Dir       string
	Extractor Extractor

	// Mirror, if set, is consulted before a network fetch and written
	// through to after one, letting a fleet share one durable archive
	// store in front of each machine's local extraction cache.
	Mirror storage.Storage

	locks sync.Map // BucketKey -> *sync.Mutex
	index atomic.Int64
}

// New returns a Cache rooted at dir, creating it if necessary.
func New(dir string, extractor Extractor) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pkgcache: create cache dir: %w", err)
	}
	return &Cache{Dir: dir, Extractor: extractor}, nil
}

func (c *Cache) lockFor(key BucketKey) *sync.Mutex {
	v, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// NextIndex returns a fresh, process-wide unique index a caller can thread
// through one GetOrFetch call and the FetchFunc it builds (e.g. FetchURL),
// so a Reporter can attribute their callbacks to the same logical
// operation (§4.3 "Reporter contract").
func (c *Cache) NextIndex() int {
	return int(c.index.Add(1))
}

// GetOrFetch returns the extracted directory for key, fetching and
// extracting it via fetch if not already present (§4.3 "get_or_fetch").
// reporter may be nil; index should be the same value passed to fetch's
// own reporter calls, if any (see NextIndex).
func (c *Cache) GetOrFetch(ctx context.Context, index int, key BucketKey, fetch FetchFunc, reporter Reporter) (string, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}

	path := key.path(c.Dir)

	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	archive, err := os.CreateTemp("", "pkgcache-archive-*")
	if err != nil {
		return "", fmt.Errorf("pkgcache: create temp archive file: %w", err)
	}
	archivePath := archive.Name()
	archive.Close()
	defer os.Remove(archivePath)

	reporter.OnDownloadStart(index, key)
	fetchErr := mirrorFetch(c.Mirror, key, fetch)(ctx, archivePath)
	reporter.OnDownloadComplete(index, key, fetchErr)
	if fetchErr != nil {
		return "", fmt.Errorf("pkgcache: fetch %s: %w", key, fetchErr)
	}

	reporter.OnValidateStart(index, key)
	validateErr := validateSHA256(archivePath, key.SHA256)
	reporter.OnValidateComplete(index, key, validateErr)
	if validateErr != nil {
		return "", fmt.Errorf("pkgcache: validate %s: %w", key, validateErr)
	}

	extractDir, err := os.MkdirTemp(c.Dir, ".extract-*")
	if err != nil {
		return "", fmt.Errorf("pkgcache: create extract dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if err := c.Extractor.Extract(ctx, archivePath, extractDir); err != nil {
		return "", fmt.Errorf("pkgcache: extract %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("pkgcache: create parent dir for %s: %w", key, err)
	}
	if err := os.Rename(extractDir, path); err != nil {
		return "", fmt.Errorf("pkgcache: persist %s: %w", key, err)
	}

	return path, nil
}

// GetOrFetchWithRetry wraps fetch in retry, retrying only on errors
// satisfying Temporary (§4.3 "Retry").
func (c *Cache) GetOrFetchWithRetry(ctx context.Context, index int, key BucketKey, fetch FetchFunc, policy RetryPolicy, reporter Reporter) (string, error) {
	retrying := func(ctx context.Context, archivePath string) error {
		return retry(ctx, policy, func() error { return fetch(ctx, archivePath) })
	}
	return c.GetOrFetch(ctx, index, key, retrying, reporter)
}
