package transaction

import (
	"testing"

	"github.com/a-h/solvent/repodata"
)

func prefixRecord(name, version, build, sha256 string) *repodata.PrefixRecord {
	return &repodata.PrefixRecord{
		RepoDataRecord: repodata.RepoDataRecord{
			PackageRecord: repodata.PackageRecord{Name: name, Version: version, Build: build, SHA256: sha256},
		},
	}
}

func repoRecord(name, version, build, sha256 string) *repodata.RepoDataRecord {
	return &repodata.RepoDataRecord{
		PackageRecord: repodata.PackageRecord{Name: name, Version: version, Build: build, SHA256: sha256},
	}
}

func TestBuildInstallsNewPackage(t *testing.T) {
	tx := Build(nil, []*repodata.RepoDataRecord{repoRecord("foo", "1.0", "0", "aaa")}, nil, nil, "linux-64")

	if len(tx.Operations) != 1 || tx.Operations[0].Kind != OpInstall {
		t.Fatalf("Operations = %+v, want a single install", tx.Operations)
	}
	if tx.Operations[0].New.Name != "foo" {
		t.Fatalf("New.Name = %s, want foo", tx.Operations[0].New.Name)
	}
}

func TestBuildRemovesAbsentPackageInReverseOrder(t *testing.T) {
	current := []*repodata.PrefixRecord{
		prefixRecord("foo", "1.0", "0", "aaa"),
		prefixRecord("bar", "1.0", "0", "bbb"),
	}
	tx := Build(current, nil, nil, nil, "linux-64")

	if len(tx.Operations) != 2 {
		t.Fatalf("Operations = %+v, want 2 removes", tx.Operations)
	}
	if tx.Operations[0].Old.Name != "bar" || tx.Operations[1].Old.Name != "foo" {
		t.Fatalf("remove order = [%s, %s], want [bar, foo] (LIFO)", tx.Operations[0].Old.Name, tx.Operations[1].Old.Name)
	}
}

func TestBuildUnchangedWhenSameContent(t *testing.T) {
	current := []*repodata.PrefixRecord{prefixRecord("foo", "1.0", "0", "aaa")}
	desired := []*repodata.RepoDataRecord{repoRecord("foo", "1.0", "0", "aaa")}

	tx := Build(current, desired, nil, nil, "linux-64")

	if len(tx.Operations) != 0 {
		t.Fatalf("Operations = %+v, want none", tx.Operations)
	}
	if len(tx.Unchanged) != 1 || tx.Unchanged[0].Name != "foo" {
		t.Fatalf("Unchanged = %+v, want [foo]", tx.Unchanged)
	}
}

func TestBuildChangeWhenContentDiffers(t *testing.T) {
	current := []*repodata.PrefixRecord{prefixRecord("foo", "1.0", "0", "aaa")}
	desired := []*repodata.RepoDataRecord{repoRecord("foo", "2.0", "0", "bbb")}

	tx := Build(current, desired, nil, nil, "linux-64")

	if len(tx.Operations) != 1 || tx.Operations[0].Kind != OpChange {
		t.Fatalf("Operations = %+v, want a single change", tx.Operations)
	}
}

func TestBuildExplicitReinstall(t *testing.T) {
	current := []*repodata.PrefixRecord{prefixRecord("foo", "1.0", "0", "aaa")}
	desired := []*repodata.RepoDataRecord{repoRecord("foo", "1.0", "0", "aaa")}

	tx := Build(current, desired, map[string]bool{"foo": true}, nil, "linux-64")

	if len(tx.Operations) != 1 || tx.Operations[0].Kind != OpChange {
		t.Fatalf("Operations = %+v, want an explicit change (reinstall)", tx.Operations)
	}
}

func TestBuildIgnoredPackageStaysUnchanged(t *testing.T) {
	current := []*repodata.PrefixRecord{prefixRecord("foo", "1.0", "0", "aaa")}

	tx := Build(current, nil, nil, map[string]bool{"foo": true}, "linux-64")

	if len(tx.Operations) != 0 {
		t.Fatalf("Operations = %+v, want none (ignored package should not be removed)", tx.Operations)
	}
}

func TestBuildPythonRelinkTriggersNoarchPythonReinstall(t *testing.T) {
	current := []*repodata.PrefixRecord{
		prefixRecord("python", "3.10.0", "0", "py310"),
		prefixRecord("mypkg", "1.0", "0", "same"),
	}
	current[1].Noarch = repodata.NoarchPython

	desired := []*repodata.RepoDataRecord{
		repoRecord("python", "3.11.0", "0", "py311"),
		repoRecord("mypkg", "1.0", "0", "same"),
	}
	desired[1].Noarch = repodata.NoarchPython

	tx := Build(current, desired, nil, nil, "linux-64")

	if !tx.NeedsPythonRelink {
		t.Fatal("expected NeedsPythonRelink after a python minor version bump")
	}

	var sawReinstall bool
	for _, op := range tx.Operations {
		if op.Kind == OpReinstall && op.New.Name == "mypkg" {
			sawReinstall = true
		}
	}
	if !sawReinstall {
		t.Fatalf("Operations = %+v, want a reinstall of the noarch:python package mypkg", tx.Operations)
	}
}
