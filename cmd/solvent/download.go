package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// downloadTo GETs url and writes its body to path, the plain transport
// pkgcache.FetchFunc needs before its Extractor takes over.
func downloadTo(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("solvent: build request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("solvent: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solvent: fetch %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("solvent: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("solvent: write %s: %w", path, err)
	}
	return f.Close()
}
