package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticStorage struct {
	entries []Entry
	err     error
}

func (s staticStorage) Get(ctx context.Context, host, pathPrefix string) (Credential, bool, error) {
	panic("unused")
}
func (s staticStorage) Put(ctx context.Context, host, pathPrefix string, cred Credential) error {
	panic("unused")
}
func (s staticStorage) Delete(ctx context.Context, host, pathPrefix string) error {
	panic("unused")
}
func (s staticStorage) List(ctx context.Context) ([]Entry, error) {
	return s.entries, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransportInjectsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	storage := staticStorage{entries: []Entry{
		{Host: "127.0.0.1", Credential: Credential{Kind: KindBearerToken, Token: "secret"}},
	}}
	client := &http.Client{Transport: NewTransport(discardLogger(), storage, nil)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Host = "127.0.0.1"
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer secret" {
		t.Errorf("expected injected bearer token, got %q", gotAuth)
	}
}

func TestTransportDoesNotOverrideExistingAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	storage := staticStorage{entries: []Entry{
		{Host: "127.0.0.1", Credential: Credential{Kind: KindBearerToken, Token: "secret"}},
	}}
	client := &http.Client{Transport: NewTransport(discardLogger(), storage, nil)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer already-set")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer already-set" {
		t.Errorf("expected existing authorization header to be preserved, got %q", gotAuth)
	}
}

func TestTransportStorageErrorIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	storage := staticStorage{err: errors.New("storage unavailable")}
	client := &http.Client{Transport: NewTransport(discardLogger(), storage, nil)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("expected request to proceed unauthenticated, got error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
