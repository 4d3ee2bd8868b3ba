package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/solvent/repodata"
)

// localSource reads repodata.json from a directory on disk. Per §4.1 it
// tokenizes the outer object and only fully decodes entries whose "name"
// field is in the requested set, avoiding a full in-memory parse of large
// local indices.
type localSource struct {
	dir      string
	platform string
	channel  repodata.Channel
}

func newLocalSource(dir, platform string, channel repodata.Channel) *localSource {
	return &localSource{dir: dir, platform: platform, channel: channel}
}

func (s *localSource) records(ctx context.Context, names []string) ([]*repodata.RepoDataRecord, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	subdirPath := filepath.Join(s.dir, s.platform)
	path := filepath.Join(subdirPath, "repodata.json")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gateway: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	out, err := sparseDecode(dec, want, s.channel, "file://"+subdirPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse %s: %w", path, err)
	}
	return out, nil
}

// sparseDecode walks the top-level object of a repodata.json document,
// descending into the "packages" and "packages.conda" maps and fully
// unmarshaling only the entries whose name is in want.
func sparseDecode(dec *json.Decoder, want map[string]bool, channel repodata.Channel, baseURL string) ([]*repodata.RepoDataRecord, error) {
	var out []*repodata.RepoDataRecord

	if _, err := dec.Token(); err != nil { // opening '{'
		return nil, err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		switch key {
		case "packages", "packages.conda":
			records, err := sparsePackageMap(dec, want, channel, baseURL)
			if err != nil {
				return nil, err
			}
			out = append(out, records...)
		default:
			var discard json.RawMessage
			if err := dec.Decode(&discard); err != nil {
				return nil, err
			}
		}
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return out, nil
}

func sparsePackageMap(dec *json.Decoder, want map[string]bool, channel repodata.Channel, baseURL string) ([]*repodata.RepoDataRecord, error) {
	var out []*repodata.RepoDataRecord

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		fnTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		filename, _ := fnTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		var peek struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &peek); err != nil {
			return nil, err
		}
		if !want[peek.Name] {
			continue
		}

		var pr repodata.PackageRecord
		if err := json.Unmarshal(raw, &pr); err != nil {
			return nil, err
		}
		out = append(out, &repodata.RepoDataRecord{
			PackageRecord: pr,
			Filename:      filename,
			Channel:       channel.Name,
			URL:           baseURL + "/" + filename,
		})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return out, nil
}
