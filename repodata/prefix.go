package repodata

// PathType identifies how a file was materialized into a prefix.
type PathType string

const (
	PathTypeHardlink PathType = "hardlink"
	PathTypeSoftlink PathType = "softlink"
	PathTypeCopy     PathType = "copy"
)

// PathsVersion is the schema version of PathsData, matching conda's
// paths.json / PrefixRecord format.
const PathsVersion = 1

// PathData describes one file installed from a package into a prefix.
type PathData struct {
	Path              string   `json:"_path"`
	PathType          PathType `json:"path_type"`
	PrefixPlaceholder string   `json:"prefix_placeholder,omitempty"`
	NoLink            bool     `json:"no_link,omitempty"`
	SHA256            string   `json:"sha256,omitempty"`
	SHA256InPrefix    string   `json:"sha256_in_prefix,omitempty"`
	SizeInBytes       int64    `json:"size_in_bytes,omitempty"`
}

// PathsData is the "paths_data" block of a PrefixRecord.
type PathsData struct {
	PathsVersion int        `json:"paths_version"`
	Paths        []PathData `json:"paths"`
}

// LinkInfo records where a package's files were copied/linked from, and how.
type LinkInfo struct {
	Source string   `json:"source"`
	Type   PathType `json:"type"`
}

// PrefixRecord is a RepoDataRecord augmented with install-time facts.
// Persisted once per installed package at
// "<prefix>/conda-meta/<name>-<version>-<build>.json".
type PrefixRecord struct {
	RepoDataRecord
	Files          []string  `json:"files"`
	PathsData      PathsData `json:"paths_data"`
	Link           *LinkInfo `json:"link,omitempty"`
	RequestedSpec  string    `json:"requested_spec,omitempty"`
	SourceCacheDir string    `json:"source_cache_dir,omitempty"`
}

// MetaFileName returns the "<name>-<version>-<build>.json" file name used
// under "<prefix>/conda-meta/".
func (p *PrefixRecord) MetaFileName() string {
	return p.Name + "-" + p.Version + "-" + p.Build + ".json"
}
