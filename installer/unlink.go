package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/solvent/repodata"
)

// unlinkPackage removes record's files from the prefix, deleting now-empty
// parent directories, unregisters its claimed paths from the clobber
// registry, and deletes its conda-meta record (§4.6 step 2, "removes").
func unlinkPackage(driver *InstallDriver, record *repodata.PrefixRecord) error {
	for _, rel := range record.Files {
		path := filepath.Join(driver.Prefix, rel)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("installer: remove %s: %w", rel, err)
		}
		removeEmptyParents(filepath.Dir(path), driver.Prefix)
	}

	driver.Clobber.Unregister(record.Name, record.Files)

	metaPath := filepath.Join(driver.Prefix, "conda-meta", record.MetaFileName())
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("installer: remove conda-meta for %s: %w", record.Name, err)
	}
	return nil
}

// removeEmptyParents removes dir and its ancestors up to (exclusive) root
// as long as each is empty, stopping at the first non-empty directory.
func removeEmptyParents(dir, root string) {
	for dir != root && len(dir) > len(root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
