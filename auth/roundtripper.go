package auth

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"path"
)

// Transport wraps an inner http.RoundTripper and injects credentials looked
// up from Storage before delegating. If the request already carries an
// Authorization header, Transport is a no-op, and storage errors are
// logged and otherwise ignored: the request proceeds unauthenticated rather
// than failing outright.
type Transport struct {
	log     *slog.Logger
	storage Storage
	inner   http.RoundTripper
}

// NewTransport returns a Transport that consults storage for credentials
// and delegates to inner (http.DefaultTransport if inner is nil).
func NewTransport(log *slog.Logger, storage Storage, inner http.RoundTripper) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &Transport{log: log, storage: storage, inner: inner}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.inner.RoundTrip(req)
	}

	entries, err := t.storage.List(req.Context())
	if err != nil {
		t.log.Warn("auth storage unavailable, proceeding unauthenticated", slog.String("host", req.URL.Host), slog.Any("error", err))
		return t.inner.RoundTrip(req)
	}

	cred, ok := Resolve(entries, req.URL.Hostname(), req.URL.Path)
	if !ok {
		return t.inner.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	switch cred.Kind {
	case KindCondaToken:
		req.URL.Path = path.Join("/t", cred.Token, req.URL.Path)
		t.log.Debug("injected conda token", slog.String("host", req.URL.Host))
	case KindBearerToken:
		req.Header.Set("Authorization", "Bearer "+cred.Token)
		t.log.Debug("injected bearer token", slog.String("host", req.URL.Host))
	case KindBasicHTTP:
		basic := base64.StdEncoding.EncodeToString([]byte(cred.Username + ":" + cred.Password))
		req.Header.Set("Authorization", "Basic "+basic)
		t.log.Debug("injected basic auth", slog.String("host", req.URL.Host))
	case KindS3, KindOAuth:
		// Carried opaquely; a dedicated transport (the S3 client, or an
		// OAuth-aware transport) is expected to apply these, not us.
	default:
		t.log.Warn("unknown credential kind, request sent unauthenticated", slog.String("kind", string(cred.Kind)))
	}

	return t.inner.RoundTrip(req)
}
