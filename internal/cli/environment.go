package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/a-h/solvent/auth"
	"github.com/a-h/solvent/gateway"
	"github.com/a-h/solvent/httpcache"
	"github.com/a-h/solvent/metrics"
	"github.com/a-h/solvent/pkgcache"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/storage"
)

// stubExtractor reports that archive decoding isn't implemented: `.conda`
// and `.tar.bz2` decoding is carried forward from spec.md as an explicit
// Non-goal (treated as a future library dependency at this exact
// boundary), so pkgcache.GetOrFetch always fails past the download step
// until a caller supplies a real Extractor.
type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	return fmt.Errorf("installer: archive decoding is not implemented; supply a pkgcache.Extractor for %s", archivePath)
}

// Environment bundles the shared runtime pieces every subcommand that
// touches a channel or a prefix needs: the repodata gateway (with its
// HTTP cache and outbound credential transport), the package cache, and
// the process-wide metrics registry.
type Environment struct {
	Gateway  *gateway.Gateway
	Packages *pkgcache.Cache
	Metrics  metrics.Metrics
	Channels []repodata.Channel
}

// NewEnvironment wires a Gateway and package Cache rooted at globals'
// configured directories, with credentials resolved via authStorage (may
// be nil, disabling credential injection) and channels resolved from
// their base URLs.
func NewEnvironment(g *Globals, authStorage auth.Storage, channelURLs []string) (*Environment, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if authStorage != nil {
		transport = auth.NewTransport(g.Logger(), authStorage, transport)
	}
	client := &http.Client{Transport: transport}

	cache, err := httpcache.New(g.CacheDir, client)
	if err != nil {
		return nil, fmt.Errorf("cli: create http cache: %w", err)
	}

	pkgCache, err := pkgcache.New(g.PkgCacheDir, stubExtractor{})
	if err != nil {
		return nil, fmt.Errorf("cli: create package cache: %w", err)
	}

	if g.Mirror.Bucket != "" {
		mirror, err := storage.NewS3(context.Background(), storage.S3Config{
			Bucket:          g.Mirror.Bucket,
			Prefix:          g.Mirror.Prefix,
			Region:          g.Mirror.Region,
			Endpoint:        g.Mirror.Endpoint,
			AccessKeyID:     g.Mirror.AccessKeyID,
			SecretAccessKey: g.Mirror.SecretAccessKey,
			ForcePathStyle:  g.Mirror.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("cli: create package mirror: %w", err)
		}
		pkgCache.Mirror = mirror
	}

	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("cli: create metrics: %w", err)
	}

	channels := make([]repodata.Channel, len(channelURLs))
	for i, url := range channelURLs {
		channels[i] = repodata.Channel{BaseURL: url, Name: url}
	}

	newReq := func(url string) (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}

	gw := gateway.New(channels, cache, newReq)

	return &Environment{Gateway: gw, Packages: pkgCache, Metrics: m, Channels: channels}, nil
}
