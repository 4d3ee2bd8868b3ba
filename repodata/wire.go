package repodata

import (
	"encoding/json"
	"fmt"
)

// RepodataInfo is the "info" block of a repodata.json document.
type RepodataInfo struct {
	Subdir string `json:"subdir"`
}

// RepodataJSON is the top-level shape of a repodata.json document: an
// "info" block plus two filename-keyed record maps (.tar.bz2 packages and
// .conda packages), and a list of filenames removed since a prior revision.
type RepodataJSON struct {
	Info            RepodataInfo             `json:"info"`
	Packages        map[string]PackageRecord `json:"packages"`
	PackagesConda   map[string]PackageRecord `json:"packages.conda"`
	Removed         []string                 `json:"removed,omitempty"`
	RepodataVersion int                      `json:"repodata_version"`
}

// DecodeRepodataJSON parses a repodata.json document and merges its two
// filename-keyed package maps into RepoDataRecords, attaching the implicit
// "fn" (the map key), channel, and a URL built from baseURL.
func DecodeRepodataJSON(data []byte, channel Channel, baseURL string) (*RepodataJSON, []*RepoDataRecord, error) {
	var doc RepodataJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode repodata.json: %w", err)
	}

	records := make([]*RepoDataRecord, 0, len(doc.Packages)+len(doc.PackagesConda))
	for fn, pr := range doc.Packages {
		records = append(records, toRecord(fn, pr, channel, baseURL))
	}
	for fn, pr := range doc.PackagesConda {
		records = append(records, toRecord(fn, pr, channel, baseURL))
	}
	return &doc, records, nil
}

func toRecord(filename string, pr PackageRecord, channel Channel, baseURL string) *RepoDataRecord {
	return &RepoDataRecord{
		PackageRecord: pr,
		Filename:      filename,
		Channel:       channel.Name,
		URL:           trimSlash(baseURL) + "/" + filename,
	}
}

func trimSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

// ShardManifest is the decoded form of "repodata_shards.msgpack.zst": a map
// from package name to the SHA-256 of the shard document holding its
// records.
type ShardManifest struct {
	Info   ShardManifestInfo `msgpack:"info"`
	Shards map[string][]byte `msgpack:"shards"`
}

// ShardManifestInfo is the manifest's "info" block.
type ShardManifestInfo struct {
	Subdir  string `msgpack:"subdir"`
	BaseURL string `msgpack:"base_url"`
}

// Shard is the decoded form of one "shards/<hex-sha256>.msgpack.zst" document.
type Shard struct {
	Packages      map[string]PackageRecord `msgpack:"packages"`
	PackagesConda map[string]PackageRecord `msgpack:"packages.conda"`
}

// Records merges a Shard's two filename-keyed maps into RepoDataRecords.
func (s *Shard) Records(channel Channel, baseURL string) []*RepoDataRecord {
	records := make([]*RepoDataRecord, 0, len(s.Packages)+len(s.PackagesConda))
	for fn, pr := range s.Packages {
		records = append(records, toRecord(fn, pr, channel, baseURL))
	}
	for fn, pr := range s.PackagesConda {
		records = append(records, toRecord(fn, pr, channel, baseURL))
	}
	return records
}
