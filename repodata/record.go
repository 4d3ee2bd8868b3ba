// Package repodata implements the Conda repodata data model: PackageRecord,
// RepoDataRecord, PrefixRecord, and the Subdir channel/platform index, along
// with the JSON wire formats described in the interface spec.
package repodata

import "github.com/a-h/solvent/version"

// NoarchKind identifies a platform-independent package's special handling.
type NoarchKind string

const (
	NoarchNone    NoarchKind = ""
	NoarchGeneric NoarchKind = "generic"
	NoarchPython  NoarchKind = "python"
)

// PackageRecord is the canonical metadata for a single built package.
// (name, version, build) plus content hash uniquely identify a record.
type PackageRecord struct {
	Name           string     `json:"name"`
	Version        string     `json:"version"`
	Build          string     `json:"build"`
	BuildNumber    int64      `json:"build_number"`
	Subdir         string     `json:"subdir"`
	Platform       string     `json:"platform,omitempty"`
	Arch           string     `json:"arch,omitempty"`
	Depends        []string   `json:"depends,omitempty"`
	Constrains     []string   `json:"constrains,omitempty"`
	TrackFeatures  []string   `json:"track_features,omitempty"`
	Features       string     `json:"features,omitempty"`
	Noarch         NoarchKind `json:"noarch,omitempty"`
	SHA256         string     `json:"sha256,omitempty"`
	MD5            string     `json:"md5,omitempty"`
	Size           int64      `json:"size,omitempty"`
	Timestamp      int64      `json:"timestamp,omitempty"`
	License        string     `json:"license,omitempty"`
	LicenseFamily  string     `json:"license_family,omitempty"`
	PythonSitePkgs string     `json:"python_site_packages_path,omitempty"`

	// parsedVersion caches version.Parse(Version) lazily; populated by
	// ParsedVersion on first use since Gateway decoding happens at a JSON
	// boundary where a parse failure shouldn't abort the whole subdir load.
	parsedVersion *version.Version
}

// ParsedVersion parses and caches Version, used by match-spec evaluation
// and the resolver's candidate ordering.
func (r *PackageRecord) ParsedVersion() (version.Version, error) {
	if r.parsedVersion != nil {
		return *r.parsedVersion, nil
	}
	v, err := version.Parse(r.Version)
	if err != nil {
		return version.Version{}, err
	}
	r.parsedVersion = &v
	return v, nil
}

// RecordName, RecordVersion, ... implement matchspec.Record.
func (r *PackageRecord) RecordName() string { return r.Name }
func (r *PackageRecord) RecordVersion() version.Version {
	v, err := r.ParsedVersion()
	if err != nil {
		return version.Version{}
	}
	return v
}
func (r *PackageRecord) RecordBuild() string      { return r.Build }
func (r *PackageRecord) RecordBuildNumber() int64 { return r.BuildNumber }
func (r *PackageRecord) RecordSubdir() string     { return r.Subdir }
func (r *PackageRecord) RecordMD5() string        { return r.MD5 }
func (r *PackageRecord) RecordSHA256() string     { return r.SHA256 }

// Filename is not a PackageRecord field (it is only known once a record is
// attached to a RepoDataRecord or a repodata.json key); RecordFilename and
// RecordChannel are implemented on RepoDataRecord instead.

// RepoDataRecord is a PackageRecord augmented with the absolute URL,
// filename, and source channel — the unit carried through the resolver.
type RepoDataRecord struct {
	PackageRecord
	URL      string `json:"url"`
	Filename string `json:"fn"`
	Channel  string `json:"channel"`
}

func (r *RepoDataRecord) RecordFilename() string { return r.Filename }
func (r *RepoDataRecord) RecordChannel() string   { return r.Channel }
