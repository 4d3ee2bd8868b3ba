package auth

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/kv"
)

// Storage is the pluggable credential store consulted by Transport. Keys are
// a host plus an optional path prefix; lookups use longest-prefix-then-
// wildcard-host matching, implemented in lookup.go.
type Storage interface {
	Get(ctx context.Context, host, pathPrefix string) (cred Credential, ok bool, err error)
	Put(ctx context.Context, host, pathPrefix string, cred Credential) error
	Delete(ctx context.Context, host, pathPrefix string) error
	List(ctx context.Context) ([]Entry, error)
}

// Entry is a single stored credential together with the key it was stored
// under, as returned by List.
type Entry struct {
	Host       string
	PathPrefix string
	Credential Credential
}

// KVStorage implements Storage over an a-h/kv store, the same
// sqlite/rqlite/postgres-backed abstraction store.New opens for any other
// stateful component. Credentials are stored JSON-encoded under
// "/auth/<host>" or "/auth/<host>/<path-prefix>".
type KVStorage struct {
	store kv.Store
}

// NewKVStorage returns a Storage backed by store. Use store.New to
// open store against sqlite, rqlite, or Postgres.
func NewKVStorage(store kv.Store) *KVStorage {
	return &KVStorage{store: store}
}

func (s *KVStorage) key(host, pathPrefix string) string {
	encodedHost := url.PathEscape(host)
	if pathPrefix == "" {
		return path.Join("/auth", encodedHost)
	}
	return path.Join("/auth", encodedHost, url.PathEscape(pathPrefix))
}

func (s *KVStorage) Get(ctx context.Context, host, pathPrefix string) (cred Credential, ok bool, err error) {
	key := s.key(host, pathPrefix)
	_, ok, err = s.store.Get(ctx, key, &cred)
	if err != nil {
		return Credential{}, false, err
	}
	return cred, ok, nil
}

func (s *KVStorage) Put(ctx context.Context, host, pathPrefix string, cred Credential) error {
	key := s.key(host, pathPrefix)
	return s.store.Put(ctx, key, -1, cred)
}

func (s *KVStorage) Delete(ctx context.Context, host, pathPrefix string) error {
	key := s.key(host, pathPrefix)
	_, err := s.store.Delete(ctx, key)
	return err
}

func (s *KVStorage) List(ctx context.Context) ([]Entry, error) {
	records, err := s.store.GetPrefix(ctx, "/auth/", 0, -1)
	if err != nil {
		return nil, err
	}
	creds, err := kv.ValuesOf[Credential](records)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(records))
	for i, record := range records {
		host, prefix := splitAuthKey(record.Key)
		entries[i] = Entry{Host: host, PathPrefix: prefix, Credential: creds[i]}
	}
	return entries, nil
}

// splitAuthKey recovers (host, pathPrefix) from a "/auth/<host>[/<prefix>]" key.
func splitAuthKey(key string) (host, pathPrefix string) {
	trimmed := strings.TrimPrefix(key, "/auth/")
	parts := strings.SplitN(trimmed, "/", 2)
	host, _ = url.PathUnescape(parts[0])
	if len(parts) == 2 {
		pathPrefix, _ = url.PathUnescape(parts[1])
	}
	return host, pathPrefix
}
