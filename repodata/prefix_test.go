package repodata

import "testing"

func TestPrefixRecordMetaFileName(t *testing.T) {
	p := &PrefixRecord{
		RepoDataRecord: RepoDataRecord{
			PackageRecord: PackageRecord{Name: "numpy", Version: "1.24.0", Build: "py311h1234_0"},
		},
	}
	want := "numpy-1.24.0-py311h1234_0.json"
	if got := p.MetaFileName(); got != want {
		t.Errorf("MetaFileName() = %q, want %q", got, want)
	}
}
