// Package transaction implements the Transaction Builder (§4.5): diffing a
// prefix's currently installed packages against a desired set of
// RepoDataRecords into an ordered list of remove/install/change/reinstall
// operations.
package transaction

import (
	"strings"

	"github.com/a-h/solvent/repodata"
)

// PythonInfo captures the two facts that decide whether installed
// noarch: python packages need relinking when python itself changes.
type PythonInfo struct {
	MajorMinor       string
	SitePackagesPath string
}

// findPython returns the PythonInfo for whichever record is named
// "python" in records, or nil if none is present.
func findPython(records []recordLike) *PythonInfo {
	for _, r := range records {
		if r.recordName() != "python" {
			continue
		}
		return &PythonInfo{
			MajorMinor:       majorMinor(r.recordVersion()),
			SitePackagesPath: r.recordSitePackages(),
		}
	}
	return nil
}

func majorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}

// needsPythonRelink reports whether current and desired python differ in
// a way that requires noarch: python packages to be relinked (§4.5 step
// 1). Absent on either side is not itself a relink trigger: a python
// install or removal is its own operation, handled independently.
func needsPythonRelink(current, desired *PythonInfo) bool {
	if current == nil || desired == nil {
		return false
	}
	return current.MajorMinor != desired.MajorMinor || current.SitePackagesPath != desired.SitePackagesPath
}

// recordLike lets findPython work over both *repodata.PrefixRecord and
// *repodata.RepoDataRecord without duplicating the search.
type recordLike interface {
	recordName() string
	recordVersion() string
	recordSitePackages() string
}

type prefixRecordLike struct{ r *repodata.PrefixRecord }

func (p prefixRecordLike) recordName() string         { return p.r.Name }
func (p prefixRecordLike) recordVersion() string       { return p.r.Version }
func (p prefixRecordLike) recordSitePackages() string  { return p.r.PythonSitePkgs }

type repoDataRecordLike struct{ r *repodata.RepoDataRecord }

func (p repoDataRecordLike) recordName() string        { return p.r.Name }
func (p repoDataRecordLike) recordVersion() string      { return p.r.Version }
func (p repoDataRecordLike) recordSitePackages() string { return p.r.PythonSitePkgs }
