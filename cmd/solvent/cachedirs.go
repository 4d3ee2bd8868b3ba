package main

import (
	"os"
	"path/filepath"
)

// defaultCacheDirs computes the kong.Vars defaults for --cache-dir and
// --pkg-cache-dir, rooted at the user's cache directory when available.
func defaultCacheDirs() (cacheDir, pkgCacheDir string) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "solvent", "repodata"), filepath.Join(base, "solvent", "pkgs")
}
