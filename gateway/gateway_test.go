package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/a-h/solvent/httpcache"
	"github.com/a-h/solvent/repodata"
)

func writeRepodata(t *testing.T, dir, platform string, packages map[string]repodata.PackageRecord) {
	t.Helper()
	doc := repodata.RepodataJSON{
		Info:     repodata.RepodataInfo{Subdir: platform},
		Packages: packages,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal repodata.json: %v", err)
	}
	subdir := filepath.Join(dir, platform)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", subdir, err)
	}
	if err := os.WriteFile(filepath.Join(subdir, "repodata.json"), data, 0o644); err != nil {
		t.Fatalf("write repodata.json: %v", err)
	}
}

func TestGatewayLoadRecordsLocalRecursiveDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeRepodata(t, dir, "linux-64", map[string]repodata.PackageRecord{
		"foo-1.0-0.tar.bz2": {Name: "foo", Version: "1.0", Build: "0", Subdir: "linux-64", Depends: []string{"bar >=1.0"}},
		"bar-1.0-0.tar.bz2": {Name: "bar", Version: "1.0", Build: "0", Subdir: "linux-64"},
		"baz-1.0-0.tar.bz2": {Name: "baz", Version: "1.0", Build: "0", Subdir: "linux-64"},
	})

	channel := repodata.Channel{BaseURL: dir, Name: "local"}
	cache, err := httpcache.New(t.TempDir(), http.DefaultClient)
	if err != nil {
		t.Fatalf("httpcache.New: %v", err)
	}
	gw := New([]repodata.Channel{channel}, cache, nil)

	records, err := gw.LoadRecords(context.Background(), []string{"linux-64"}, []string{"foo"})
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}

	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	sort.Strings(names)

	want := []string{"bar", "foo"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestGatewayLoadRecordsFullRemoteFallback(t *testing.T) {
	packages := map[string]repodata.PackageRecord{
		"foo-1.0-0.tar.bz2": {Name: "foo", Version: "1.0", Build: "0", Subdir: "linux-64"},
	}
	doc := repodata.RepodataJSON{Info: repodata.RepodataInfo{Subdir: "linux-64"}, Packages: packages}
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/linux-64/repodata_shards.msgpack.zst":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/linux-64/repodata.json.zst":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/linux-64/repodata.json.bz2":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/linux-64/repodata.json":
			w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	channel := repodata.Channel{BaseURL: srv.URL, Name: "remote"}
	cache, err := httpcache.New(t.TempDir(), srv.Client())
	if err != nil {
		t.Fatalf("httpcache.New: %v", err)
	}
	gw := New([]repodata.Channel{channel}, cache, nil)

	records, err := gw.LoadRecords(context.Background(), []string{"linux-64"}, []string{"foo"})
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 1 || records[0].Name != "foo" {
		t.Fatalf("records = %+v, want a single foo record", records)
	}
}
