package httpcache

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Get when the cached (or freshly fetched)
// response for url was a 404, per §4.2's availability-negative-caching.
var ErrNotFound = errors.New("httpcache: not found")

// Cache is a file-based, RFC 7234-flavoured cache over a directory, one
// file per URL, named by the hex SHA-256 of the URL (§6).
type Cache struct {
	Dir    string
	Client *http.Client
}

// New returns a Cache rooted at dir, creating it if necessary.
func New(dir string, client *http.Client) (*Cache, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("httpcache: create cache dir: %w", err)
	}
	return &Cache{Dir: dir, Client: client}, nil
}

func (c *Cache) pathFor(url string) string {
	return filepath.Join(c.Dir, KeyForURL(url)+".json")
}

// Get returns the body cached for url, fetching or revalidating against
// req as needed. req must already carry whatever auth/negotiation headers
// the caller wants applied to both the initial and conditional requests.
func (c *Cache) Get(req *http.Request) ([]byte, error) {
	path := c.pathFor(req.URL.String())

	existing, hasExisting, err := c.read(path)
	if err != nil {
		// Corrupt cache: delete and retry once as a fresh fetch (§7).
		os.Remove(path)
		existing, hasExisting = EntryHeader{}, false
	}

	if hasExisting {
		if existing.NotFound {
			if existing.Policy.Fresh(time.Now()) {
				return nil, ErrNotFound
			}
		} else if existing.Policy.Fresh(time.Now()) {
			_, body, err := c.readBody(path)
			return body, err
		}
	}

	lock, err := lockPath(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("httpcache: lock %s: %w", path, err)
	}
	defer lock.Close()

	// Re-read under the lock: another writer may have refreshed the entry
	// while we waited.
	existing, hasExisting, _ = c.read(path)
	if hasExisting && !existing.NotFound && existing.Policy.Fresh(time.Now()) {
		_, body, err := c.readBody(path)
		return body, err
	}

	if hasExisting && !existing.NotFound {
		existing.Policy.ApplyConditional(req)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpcache: fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		body, err := c.bodyOf(path)
		if err != nil {
			return nil, err
		}
		existing.Policy.Refresh(resp)
		if err := c.write(path, EntryHeader{Policy: existing.Policy}, body); err != nil {
			return nil, err
		}
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		policy := NewCachePolicy(req.URL.String(), resp)
		if err := c.write(path, EntryHeader{Policy: policy, NotFound: true}, nil); err != nil {
			return nil, err
		}
		return nil, ErrNotFound

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("httpcache: read body of %s: %w", req.URL, err)
		}
		policy := NewCachePolicy(req.URL.String(), resp)
		if err := c.write(path, EntryHeader{Policy: policy}, body); err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, fmt.Errorf("httpcache: unexpected status %d fetching %s", resp.StatusCode, req.URL)
	}
}

func (c *Cache) read(path string) (EntryHeader, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return EntryHeader{}, false, nil
		}
		return EntryHeader{}, false, fmt.Errorf("httpcache: read %s: %w", path, err)
	}
	header, _, err := decode(data)
	if err != nil {
		return EntryHeader{}, false, err
	}
	return header, true, nil
}

func (c *Cache) readBody(path string) (EntryHeader, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EntryHeader{}, nil, fmt.Errorf("httpcache: read %s: %w", path, err)
	}
	return decode(data)
}

func (c *Cache) bodyOf(path string) ([]byte, error) {
	_, body, err := c.readBody(path)
	return body, err
}

// write atomically replaces the cache file at path via a temp file + rename.
func (c *Cache) write(path string, header EntryHeader, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".httpcache-*")
	if err != nil {
		return fmt.Errorf("httpcache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := encode(tmp, header, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("httpcache: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("httpcache: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
