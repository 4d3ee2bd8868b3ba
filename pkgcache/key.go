// Package pkgcache implements a content-addressed store of extracted
// package directories (§4.3): a per-key single-flight download/extract
// path, a retry wrapper for transient fetch errors, and reporter callbacks
// for download/validate progress.
package pkgcache

import "path/filepath"

// BucketKey identifies one cache bucket: two records with the same
// name/version/build-string but a different SHA-256 occupy distinct
// buckets.
type BucketKey struct {
	Name    string
	Version string
	Build   string
	SHA256  string
}

// path computes the on-disk directory this key extracts to, rooted at dir.
func (k BucketKey) path(dir string) string {
	bucket := k.Name + "-" + k.Version + "-" + k.Build
	prefix := k.SHA256
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(dir, k.Name, bucket, prefix, k.SHA256)
}

// String returns a human-readable identifier for logging and reporter
// output, e.g. "numpy-1.26.4-py311h.../abcd1234...".
func (k BucketKey) String() string {
	return k.Name + "-" + k.Version + "-" + k.Build + "/" + k.SHA256
}
