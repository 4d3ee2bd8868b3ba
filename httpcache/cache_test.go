package httpcache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func TestGetFetchesThenRevalidatesWith304(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&hits, 1)
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Cache-Control", "no-cache")
		if n > 1 && r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req1, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	body, err := c.Get(req1)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("first Get body = %q, want %q", body, "hello")
	}

	req2, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	body, err = c.Get(req2)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("second Get body = %q, want %q", body, "hello")
	}
	if hits != 2 {
		t.Fatalf("server hit %d times, want 2 (fetch + revalidate)", hits)
	}
}

func TestGetCachesNotFound(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Get(req); err != ErrNotFound {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}

	req2, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Get(req2); err != ErrNotFound {
		t.Fatalf("second Get err = %v, want ErrNotFound", err)
	}
	if hits != 1 {
		t.Fatalf("server hit %d times, want 1 (second should be served from the negative cache)", hits)
	}
}

func TestGetRecoversFromCorruptEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := New(dir, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	path := c.pathFor(req.URL.String())
	if err := os.WriteFile(path, []byte("not a valid cache entry"), 0o644); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	body, err := c.Get(req)
	if err != nil {
		t.Fatalf("Get after corrupt entry: %v", err)
	}
	if string(body) != "fresh" {
		t.Fatalf("body = %q, want %q", body, "fresh")
	}
}
