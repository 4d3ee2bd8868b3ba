package repodata

import (
	"sort"
	"testing"

	"github.com/a-h/solvent/matchspec"
)

var _ matchspec.Record = (*RepoDataRecord)(nil)

func TestSubdirIndexing(t *testing.T) {
	channel := Channel{Name: "conda-forge"}
	s := NewSubdir(channel, "linux-64")

	s.Add(&RepoDataRecord{PackageRecord: PackageRecord{Name: "numpy", Version: "1.24.0", Build: "0"}})
	s.Add(&RepoDataRecord{PackageRecord: PackageRecord{Name: "numpy", Version: "1.25.0", Build: "0"}})
	s.Add(&RepoDataRecord{PackageRecord: PackageRecord{Name: "scipy", Version: "1.11.0", Build: "0"}})

	if got := len(s.RecordsFor("numpy")); got != 2 {
		t.Errorf("expected 2 numpy records, got %d", got)
	}
	if got := len(s.RecordsFor("scipy")); got != 1 {
		t.Errorf("expected 1 scipy record, got %d", got)
	}
	if got := s.RecordsFor("missing"); got != nil {
		t.Errorf("expected nil for missing name, got %v", got)
	}

	names := s.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "numpy" || names[1] != "scipy" {
		t.Errorf("unexpected names: %v", names)
	}

	if s.Len() != 3 {
		t.Errorf("expected total length 3, got %d", s.Len())
	}
}
