package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/a-h/solvent/httpcache"
	"github.com/a-h/solvent/repodata"
)

// fullRemoteSource fetches repodata.json[.zst|.bz2] once, caches the fully
// decoded index in memory for the process lifetime, and serves every
// subsequent records call from it (§4.1 "Full remote").
type fullRemoteSource struct {
	channel  repodata.Channel
	platform string
	cache    *httpcache.Cache
	newReq   func(url string) (*http.Request, error)

	mu     sync.Mutex
	loaded bool
	index  *repodata.Subdir
}

func newFullRemoteSource(channel repodata.Channel, platform string, cache *httpcache.Cache, newReq func(url string) (*http.Request, error)) *fullRemoteSource {
	return &fullRemoteSource{
		channel:  channel,
		platform: platform,
		cache:    cache,
		newReq:   newReq,
	}
}

func (s *fullRemoteSource) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	baseURL := strings.TrimSuffix(s.channel.BaseURL, "/") + "/" + s.platform
	body, _, err := s.cache.FetchVariant(ctx, baseURL+"/repodata.json", httpcache.DefaultVariants, s.newReq)
	if errors.Is(err, httpcache.ErrNotFound) {
		// No repodata.json for this platform at all (e.g. a channel with no
		// noarch packages); treat as an empty index rather than a hard
		// error, same as a subdir directory simply not existing.
		s.index = repodata.NewSubdir(s.channel, s.platform)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("gateway: fetch repodata.json for %s/%s: %w", s.channel.Name, s.platform, err)
	}

	_, records, err := repodata.DecodeRepodataJSON(body, s.channel, baseURL)
	if err != nil {
		return fmt.Errorf("gateway: decode repodata.json for %s/%s: %w", s.channel.Name, s.platform, err)
	}

	index := repodata.NewSubdir(s.channel, s.platform)
	for _, r := range records {
		index.Add(r)
	}
	s.index = index
	s.loaded = true
	return nil
}

func (s *fullRemoteSource) records(ctx context.Context, names []string) ([]*repodata.RepoDataRecord, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repodata.RepoDataRecord
	for _, name := range names {
		out = append(out, s.index.RecordsFor(name)...)
	}
	return out, nil
}
