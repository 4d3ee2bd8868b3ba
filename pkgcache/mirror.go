package pkgcache

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/a-h/solvent/storage"
)

// objectName is the mirror key an archive is stored under: content
// addressed by SHA-256 alone (the local extraction path also carries
// name, version and build), so two
// records that differ only in name/version/build but share a SHA-256
// share one mirrored object.
func (k BucketKey) objectName() string {
	return k.SHA256 + ".archive"
}

// mirrorFetch wraps fetch so a configured mirror is consulted before
// falling back to the network, and a freshly fetched archive is written
// through to the mirror for the next caller (any prefix, any machine,
// sharing the same durable store). A nil mirror makes this a no-op
// passthrough.
func mirrorFetch(mirror storage.Storage, key BucketKey, fetch FetchFunc) FetchFunc {
	if mirror == nil {
		return fetch
	}
	return func(ctx context.Context, archivePath string) error {
		r, exists, err := mirror.Read(key.objectName())
		if err != nil {
			return fmt.Errorf("pkgcache: read mirror for %s: %w", key, err)
		}
		if exists {
			defer r.Close()
			f, err := os.Create(archivePath)
			if err != nil {
				return fmt.Errorf("pkgcache: create %s: %w", archivePath, err)
			}
			defer f.Close()
			if _, err := io.Copy(f, r); err != nil {
				return fmt.Errorf("pkgcache: copy mirrored archive for %s: %w", key, err)
			}
			return f.Close()
		}

		if err := fetch(ctx, archivePath); err != nil {
			return err
		}

		f, err := os.Open(archivePath)
		if err != nil {
			return fmt.Errorf("pkgcache: reopen %s for mirror write-through: %w", archivePath, err)
		}
		if err := mirror.Write(key.objectName(), f); err != nil {
			return fmt.Errorf("pkgcache: write mirror for %s: %w", key, err)
		}
		return nil
	}
}
