package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/a-h/solvent/httpcache"
	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/repodata"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// subdirKey identifies one (channel, platform) pair.
type subdirKey struct {
	channel  string
	platform string
}

// Gateway is a process-wide service that, given channels, platforms and a
// seed set of package names, returns the transitive closure of
// RepoDataRecords needed for resolution (§4.1).
type Gateway struct {
	channels []repodata.Channel
	cache    *httpcache.Cache
	newReq   func(url string) (*http.Request, error)

	// DiscoveryConcurrency bounds how many (subdir, name) fetches run at
	// once during recursive discovery. Zero means a sane default.
	DiscoveryConcurrency int

	subdirGroup singleflight.Group
	fetchGroup  singleflight.Group

	mu      sync.Mutex
	sources map[subdirKey]source
}

// New returns a Gateway searching channels in priority order, using cache
// for HTTP reads and newReq to build each outbound *http.Request (so
// callers can thread auth headers through auth.Transport-wrapped
// clients without the Gateway needing to know about credentials).
func New(channels []repodata.Channel, cache *httpcache.Cache, newReq func(url string) (*http.Request, error)) *Gateway {
	if newReq == nil {
		newReq = func(url string) (*http.Request, error) { return http.NewRequest(http.MethodGet, url, nil) }
	}
	return &Gateway{
		channels: channels,
		cache:    cache,
		newReq:   newReq,
		sources:  make(map[subdirKey]source),
	}
}

// sourceFor lazily constructs the source for (channel, platform),
// coalescing concurrent callers onto one in-flight construction (§4.1
// "Subdir acquisition").
func (g *Gateway) sourceFor(ctx context.Context, channel repodata.Channel, platform string) (source, error) {
	key := subdirKey{channel: channel.Name, platform: platform}

	g.mu.Lock()
	if s, ok := g.sources[key]; ok {
		g.mu.Unlock()
		return s, nil
	}
	g.mu.Unlock()

	v, err, _ := g.subdirGroup.Do(key.channel+"/"+key.platform, func() (any, error) {
		s, err := g.buildSource(ctx, channel, platform)
		if err != nil {
			return nil, fmt.Errorf("gateway: coalesced subdir construction failed for %s/%s: %w", channel.Name, platform, err)
		}
		g.mu.Lock()
		g.sources[key] = s
		g.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(source), nil
}

func (g *Gateway) buildSource(ctx context.Context, channel repodata.Channel, platform string) (source, error) {
	if dir, ok := localDir(channel.BaseURL); ok {
		return newLocalSource(dir, platform, channel), nil
	}

	sharded, err := newShardedSource(ctx, channel, platform, g.cache, g.newReq)
	if err == nil {
		return sharded, nil
	}
	if errors.Is(err, errShardedUnavailable) {
		return newFullRemoteSource(channel, platform, g.cache, g.newReq), nil
	}
	return nil, err
}

// localDir reports whether baseURL names a local directory (a "file://"
// URL or a bare filesystem path), returning the directory to read from.
func localDir(baseURL string) (string, bool) {
	const prefix = "file://"
	if len(baseURL) >= len(prefix) && baseURL[:len(prefix)] == prefix {
		return baseURL[len(prefix):], true
	}
	if len(baseURL) > 0 && (baseURL[0] == '/' || baseURL[0] == '.') {
		return baseURL, true
	}
	return "", false
}

// fetch returns the records for (channel, platform, name), coalescing
// concurrent callers of the same (subdir, name) pair onto one fetch
// (§4.1 "Fetch coalescing").
func (g *Gateway) fetch(ctx context.Context, channel repodata.Channel, platform, name string) ([]*repodata.RepoDataRecord, error) {
	s, err := g.sourceFor(ctx, channel, platform)
	if err != nil {
		return nil, err
	}

	key := channel.Name + "/" + platform + "/" + name
	v, err, _ := g.fetchGroup.Do(key, func() (any, error) {
		return s.records(ctx, []string{name})
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: coalesced fetch failed for %s: %w", key, err)
	}
	return v.([]*repodata.RepoDataRecord), nil
}

// Platforms solvent always searches alongside a subdir's native platform,
// matching conda's own "noarch" convention.
const noarchPlatform = "noarch"

// LoadRecords returns the transitive closure of RepoDataRecords needed to
// resolve names across every channel/platform pair, per §4.1's contract:
// for every returned record R and dependency string D in R.depends, all
// records matching D's package-name portion are present in the result.
func (g *Gateway) LoadRecords(ctx context.Context, platforms []string, names []string) ([]*repodata.RepoDataRecord, error) {
	searchPlatforms := withNoarch(platforms)

	var (
		mu      sync.Mutex
		seen    = make(map[string]bool)
		pending = append([]string{}, names...)
		results []*repodata.RepoDataRecord
	)
	for _, n := range pending {
		seen[n] = true
	}

	concurrency := g.DiscoveryConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	for len(pending) > 0 {
		round := pending
		pending = nil

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)

		var newNames []string

		for _, name := range round {
			for _, channel := range g.channels {
				for _, platform := range searchPlatforms {
					channel, platform, name := channel, platform, name
					group.Go(func() error {
						records, err := g.fetch(groupCtx, channel, platform, name)
						if err != nil {
							return err
						}
						mu.Lock()
						defer mu.Unlock()
						results = append(results, records...)
						for _, r := range records {
							for _, dep := range r.Depends {
								depName := matchspec.DependencyName(dep)
								if depName != "" && !seen[depName] {
									seen[depName] = true
									newNames = append(newNames, depName)
								}
							}
						}
						return nil
					})
				}
			}
		}

		if err := group.Wait(); err != nil {
			return nil, err
		}
		pending = newNames
	}

	return results, nil
}

func withNoarch(platforms []string) []string {
	out := append([]string{}, platforms...)
	for _, p := range platforms {
		if p == noarchPlatform {
			return out
		}
	}
	return append(out, noarchPlatform)
}
