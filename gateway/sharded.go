package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/a-h/solvent/httpcache"
	"github.com/a-h/solvent/repodata"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// errShardedUnavailable is returned by newShardedSource when the channel
// has no shard manifest, so the Gateway should fall back to the full-remote
// variant for this subdir (§4.1 "Failure semantics").
var errShardedUnavailable = errors.New("gateway: no shard manifest for this subdir")

// shardedSource fetches a small manifest mapping package name to shard
// hash, then fetches individual shards on demand, coalescing concurrent
// fetches of the same shard (§4.1 "Sharded remote").
type shardedSource struct {
	channel  repodata.Channel
	platform string
	baseURL  string
	cache    *httpcache.Cache
	newReq   func(url string) (*http.Request, error)
	manifest repodata.ShardManifest

	group singleflight.Group

	mu     sync.Mutex
	cached map[string][]*repodata.RepoDataRecord
}

// newShardedSource fetches and decodes the manifest. It returns
// errShardedUnavailable (wrapped) if the manifest itself 404s.
func newShardedSource(ctx context.Context, channel repodata.Channel, platform string, cache *httpcache.Cache, newReq func(url string) (*http.Request, error)) (*shardedSource, error) {
	baseURL := strings.TrimSuffix(channel.BaseURL, "/") + "/" + platform

	req, err := newReq(baseURL + "/repodata_shards.msgpack.zst")
	if err != nil {
		return nil, fmt.Errorf("gateway: build shard manifest request: %w", err)
	}
	req = req.WithContext(ctx)

	compressed, err := cache.Get(req)
	if errors.Is(err, httpcache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", errShardedUnavailable, channel.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("gateway: fetch shard manifest for %s/%s: %w", channel.Name, platform, err)
	}

	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gateway: open zstd reader for shard manifest: %w", err)
	}
	defer zr.Close()

	raw, err := zr.DecodeAll(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: decode zstd shard manifest: %w", err)
	}

	var manifest repodata.ShardManifest
	if err := msgpack.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("gateway: unmarshal shard manifest: %w", err)
	}

	return &shardedSource{
		channel:  channel,
		platform: platform,
		baseURL:  baseURL,
		cache:    cache,
		newReq:   newReq,
		manifest: manifest,
		cached:   make(map[string][]*repodata.RepoDataRecord),
	}, nil
}

func (s *shardedSource) records(ctx context.Context, names []string) ([]*repodata.RepoDataRecord, error) {
	var out []*repodata.RepoDataRecord
	for _, name := range names {
		hashBytes, ok := s.manifest.Shards[name]
		if !ok {
			continue
		}
		hash := hex.EncodeToString(hashBytes)

		v, err, _ := s.group.Do(hash, func() (any, error) {
			return s.fetchShard(ctx, hash)
		})
		if err != nil {
			return nil, fmt.Errorf("gateway: fetch shard %s (%s): %w", hash, name, err)
		}
		records := v.([]*repodata.RepoDataRecord)
		for _, r := range records {
			if r.Name == name {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *shardedSource) fetchShard(ctx context.Context, hash string) ([]*repodata.RepoDataRecord, error) {
	s.mu.Lock()
	if cached, ok := s.cached[hash]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	req, err := s.newReq(s.baseURL + "/shards/" + hash + ".msgpack.zst")
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	compressed, err := s.cache.Get(req)
	if err != nil {
		return nil, err
	}

	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open zstd reader: %w", err)
	}
	defer zr.Close()

	raw, err := zr.DecodeAll(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("decode zstd: %w", err)
	}

	var shard repodata.Shard
	if err := msgpack.Unmarshal(raw, &shard); err != nil {
		return nil, fmt.Errorf("unmarshal shard: %w", err)
	}

	records := shard.Records(s.channel, s.baseURL)

	s.mu.Lock()
	s.cached[hash] = records
	s.mu.Unlock()
	return records, nil
}
