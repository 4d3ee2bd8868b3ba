package matchspec

import (
	"testing"

	"github.com/a-h/solvent/version"
)

type fakeRecord struct {
	name        string
	version     string
	build       string
	buildNumber int64
	channel     string
	subdir      string
	md5         string
	sha256      string
	filename    string
}

func (r fakeRecord) RecordName() string               { return r.name }
func (r fakeRecord) RecordVersion() version.Version    { return version.MustParse(r.version) }
func (r fakeRecord) RecordBuild() string               { return r.build }
func (r fakeRecord) RecordBuildNumber() int64          { return r.buildNumber }
func (r fakeRecord) RecordChannel() string             { return r.channel }
func (r fakeRecord) RecordSubdir() string              { return r.subdir }
func (r fakeRecord) RecordMD5() string                 { return r.md5 }
func (r fakeRecord) RecordSHA256() string              { return r.sha256 }
func (r fakeRecord) RecordFilename() string            { return r.filename }

func TestParseMatchSpecSimpleForms(t *testing.T) {
	cases := []struct {
		spec       string
		wantName   string
		wantBuild  string
	}{
		{"numpy", "numpy", ""},
		{"numpy 1.0 py27_0", "numpy", "py27_0"},
		{"numpy=1.0=py27_0", "numpy", "py27_0"},
		{"numpy>=1.0", "numpy", ""},
	}
	for _, c := range cases {
		m, err := ParseMatchSpec(c.spec)
		if err != nil {
			t.Fatalf("ParseMatchSpec(%q) failed: %v", c.spec, err)
		}
		if m.Name != c.wantName {
			t.Errorf("%q: name = %q, want %q", c.spec, m.Name, c.wantName)
		}
		gotBuild := ""
		if m.Build != nil {
			gotBuild = m.Build.String()
		}
		if gotBuild != c.wantBuild {
			t.Errorf("%q: build = %q, want %q", c.spec, gotBuild, c.wantBuild)
		}
	}
}

func TestParseMatchSpecChannelAndSubdir(t *testing.T) {
	m, err := ParseMatchSpec("conda-forge/linux-64::foo>=1.0")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.Channel != "conda-forge" || m.Subdir != "linux-64" || m.Name != "foo" {
		t.Fatalf("unexpected parse: %+v", m)
	}
	if m.Version == nil || !m.Version.Matches(version.MustParse("1.5")) {
		t.Error("expected version constraint >=1.0 to match 1.5")
	}
}

func TestParseMatchSpecBracket(t *testing.T) {
	m, err := ParseMatchSpec(`conda-forge::foo[version="1.0.*",build="py2*"]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.Channel != "conda-forge" || m.Name != "foo" {
		t.Fatalf("unexpected parse: %+v", m)
	}
	if m.Version == nil || !m.Version.Matches(version.MustParse("1.0.5")) {
		t.Error("expected version=1.0.* to match 1.0.5")
	}
	if m.Build == nil || !m.Build.Matches("py27_0") {
		t.Error("expected build=py2* to match py27_0")
	}
}

func TestParseMatchSpecBracketOverridesPositional(t *testing.T) {
	m, err := ParseMatchSpec(`foo 1.0[version=">=2.0"]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.Version == nil || m.Version.Matches(version.MustParse("1.0")) {
		t.Error("expected bracketed version to override the positional one")
	}
	if !m.Version.Matches(version.MustParse("2.5")) {
		t.Error("expected overridden constraint >=2.0 to match 2.5")
	}
}

func TestMatchSpecMatches(t *testing.T) {
	m, err := ParseMatchSpec("numpy>=1.20,<2.0")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	matching := fakeRecord{name: "numpy", version: "1.24.0", build: "py311h1234_0"}
	other := fakeRecord{name: "numpy", version: "2.0.0", build: "py311h1234_0"}
	wrongName := fakeRecord{name: "scipy", version: "1.24.0"}

	if !m.Matches(matching) {
		t.Error("expected matching record to satisfy the spec")
	}
	if m.Matches(other) {
		t.Error("expected out-of-range version to not satisfy the spec")
	}
	if m.Matches(wrongName) {
		t.Error("expected a different package name to not satisfy the spec")
	}
}

func TestMatchSpecWildcardName(t *testing.T) {
	m, err := ParseMatchSpec("*[sha256=abc123]")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.Name != "" && m.Name != "*" {
		t.Fatalf("expected wildcard name, got %q", m.Name)
	}
	if !m.Matches(fakeRecord{name: "anything", version: "1.0", sha256: "ABC123"}) {
		t.Error("expected sha256 match to be case-insensitive and name unconstrained")
	}
}
