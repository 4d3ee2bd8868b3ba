package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/solvent/metrics"
	"github.com/a-h/solvent/pkgcache"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/transaction"
)

// fakeExtractor "extracts" by writing a fixed info/paths.json plus the
// files it describes directly into destDir, ignoring archivePath.
type fakeExtractor struct {
	paths repodata.PathsData
	files map[string]string // path -> content
}

func (f *fakeExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	data, err := json.Marshal(f.paths)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(destDir, "info"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(destDir, "info", "paths.json"), data, 0o644); err != nil {
		return err
	}
	for path, content := range f.files {
		full := filepath.Join(destDir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestInstaller(t *testing.T, prefix string, extractor pkgcache.Extractor) *Installer {
	t.Helper()
	cacheDir := t.TempDir()
	cache, err := pkgcache.New(cacheDir, extractor)
	if err != nil {
		t.Fatalf("pkgcache.New: %v", err)
	}
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}

	driver := NewInstallDriver(prefix, nil, nil, false)

	return &Installer{
		Driver: driver,
		Cache:  cache,
		Fetch: func(ctx context.Context, index int, key pkgcache.BucketKey, url string) pkgcache.FetchFunc {
			return func(ctx context.Context, archivePath string) error {
				return os.WriteFile(archivePath, []byte("archive-bytes"), 0o644)
			}
		},
		URLFor: func(record *repodata.RepoDataRecord) string { return record.URL },
		Metrics: m,
	}
}

func TestRunInstallsNewPackage(t *testing.T) {
	prefix := t.TempDir()
	extractor := &fakeExtractor{
		paths: repodata.PathsData{PathsVersion: 1, Paths: []repodata.PathData{
			{Path: "bin/foo", PathType: repodata.PathTypeHardlink},
		}},
		files: map[string]string{"bin/foo": "#!/bin/sh\necho foo\n"},
	}
	in := newTestInstaller(t, prefix, extractor)

	record := &repodata.RepoDataRecord{
		PackageRecord: repodata.PackageRecord{Name: "foo", Version: "1.0", Build: "0", SHA256: sha256Hex("archive-bytes")},
		URL:           "https://example.com/foo-1.0-0.conda",
	}
	tx := &transaction.Transaction{Operations: []transaction.Operation{{Kind: transaction.OpInstall, New: record}}}

	result, err := in.Run(context.Background(), tx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.LinkedRecords) != 1 {
		t.Fatalf("LinkedRecords = %+v, want 1 entry", result.LinkedRecords)
	}

	linkedPath := filepath.Join(prefix, "bin/foo")
	if _, err := os.Stat(linkedPath); err != nil {
		t.Fatalf("expected bin/foo to be linked: %v", err)
	}

	metaPath := filepath.Join(prefix, "conda-meta", "foo-1.0-0.json")
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("expected conda-meta record: %v", err)
	}
}

func TestRunRemovesPackage(t *testing.T) {
	prefix := t.TempDir()
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "foo"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(prefix, "conda-meta"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "conda-meta", "foo-1.0-0.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	old := &repodata.PrefixRecord{
		RepoDataRecord: repodata.RepoDataRecord{PackageRecord: repodata.PackageRecord{Name: "foo", Version: "1.0", Build: "0"}},
		Files:          []string{"bin/foo"},
	}

	in := newTestInstaller(t, prefix, &fakeExtractor{})
	in.Driver = NewInstallDriver(prefix, []*repodata.PrefixRecord{old}, nil, false)

	tx := &transaction.Transaction{Operations: []transaction.Operation{{Kind: transaction.OpRemove, Old: old}}}

	if _, err := in.Run(context.Background(), tx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(prefix, "bin", "foo")); !os.IsNotExist(err) {
		t.Fatalf("expected bin/foo to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(prefix, "conda-meta", "foo-1.0-0.json")); !os.IsNotExist(err) {
		t.Fatalf("expected conda-meta record to be removed, stat err = %v", err)
	}
}

func TestRunRewritesPrefixPlaceholder(t *testing.T) {
	prefix := t.TempDir()
	extractor := &fakeExtractor{
		paths: repodata.PathsData{PathsVersion: 1, Paths: []repodata.PathData{
			{Path: "bin/tool", PathType: repodata.PathTypeHardlink, PrefixPlaceholder: "/placeholder"},
		}},
		files: map[string]string{"bin/tool": "#!/placeholder/bin/python\n"},
	}
	in := newTestInstaller(t, prefix, extractor)

	record := &repodata.RepoDataRecord{
		PackageRecord: repodata.PackageRecord{Name: "tool", Version: "1.0", Build: "0", SHA256: sha256Hex("archive-bytes")},
		URL:           "https://example.com/tool-1.0-0.conda",
	}
	tx := &transaction.Transaction{Operations: []transaction.Operation{{Kind: transaction.OpInstall, New: record}}}

	if _, err := in.Run(context.Background(), tx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(prefix, "bin", "tool"))
	if err != nil {
		t.Fatalf("read linked file: %v", err)
	}
	want := "#!" + prefix + "/bin/python\n"
	if string(content) != want {
		t.Fatalf("content = %q, want %q", content, want)
	}
}

func TestFinalizeRenamesClobberedFiles(t *testing.T) {
	prefix := t.TempDir()
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "tool"), []byte("foo's copy"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "tool__clobber-from-bar"), []byte("bar's copy"), 0o644); err != nil {
		t.Fatal(err)
	}

	fooRec := &repodata.PrefixRecord{
		RepoDataRecord: repodata.RepoDataRecord{PackageRecord: repodata.PackageRecord{Name: "foo", Version: "1.0", Build: "0", Depends: []string{"bar"}}},
		Files:          []string{"bin/tool"},
	}
	barRec := &repodata.PrefixRecord{
		RepoDataRecord: repodata.RepoDataRecord{PackageRecord: repodata.PackageRecord{Name: "bar", Version: "1.0", Build: "0"}},
		Files:          []string{"bin/tool__clobber-from-bar"},
	}

	in := newTestInstaller(t, prefix, &fakeExtractor{})
	in.Driver = NewInstallDriver(prefix, []*repodata.PrefixRecord{fooRec, barRec}, nil, false)

	if err := in.Finalize([]*repodata.PrefixRecord{fooRec, barRec}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(prefix, "bin", "tool"))
	if err != nil {
		t.Fatalf("read bin/tool after finalize: %v", err)
	}
	if string(content) != "bar's copy" {
		t.Fatalf("bin/tool content = %q, want bar's copy (foo depends on bar, so bar is the foundational package and wins)", content)
	}
}
