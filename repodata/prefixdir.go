package repodata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadPrefixRecords reads every "<prefix>/conda-meta/*.json" file into a
// PrefixRecord. A prefix with no conda-meta directory yet (a fresh,
// unpopulated environment) returns an empty slice rather than an error.
func LoadPrefixRecords(prefix string) ([]*PrefixRecord, error) {
	metaDir := filepath.Join(prefix, "conda-meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repodata: read conda-meta dir: %w", err)
	}

	var records []*PrefixRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(metaDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("repodata: read %s: %w", path, err)
		}
		var record PrefixRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("repodata: parse %s: %w", path, err)
		}
		records = append(records, &record)
	}
	return records, nil
}
