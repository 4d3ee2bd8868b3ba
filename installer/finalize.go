package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/repodata"
)

// Finalize runs the clobber registry's post-process winner resolution
// (§4.7 "Post-process") against the prefix's final set of installed
// records, renaming files on disk and rewriting the affected
// PrefixRecords so Files/PathsData stay in sync with what's actually on
// disk.
func (in *Installer) Finalize(records []*repodata.PrefixRecord) error {
	order := topologicalOrder(records)

	renames, err := in.Driver.Clobber.Resolve(order)
	if err != nil {
		return fmt.Errorf("installer: resolve clobbers: %w", err)
	}
	if len(renames) == 0 {
		return nil
	}

	byPath := make(map[string]*repodata.PrefixRecord)
	for _, rec := range records {
		for i := range rec.Files {
			byPath[rec.Files[i]] = rec
		}
	}

	touched := make(map[*repodata.PrefixRecord]bool)
	for _, rn := range renames {
		fromAbs := filepath.Join(in.Driver.Prefix, rn.From)
		toAbs := filepath.Join(in.Driver.Prefix, rn.To)
		if err := os.Rename(fromAbs, toAbs); err != nil {
			return fmt.Errorf("installer: rename %s to %s: %w", rn.From, rn.To, err)
		}

		if rec, ok := byPath[rn.From]; ok {
			renamePathInRecord(rec, rn.From, rn.To)
			touched[rec] = true
		}
	}

	for rec := range touched {
		if err := writeMetaFile(in.Driver.Prefix, rec); err != nil {
			return err
		}
	}
	return nil
}

func renamePathInRecord(rec *repodata.PrefixRecord, from, to string) {
	for i, f := range rec.Files {
		if f == from {
			rec.Files[i] = to
		}
	}
	for i, p := range rec.PathsData.Paths {
		if p.Path == from {
			rec.PathsData.Paths[i].Path = to
		}
	}
}

// topologicalOrder returns records' names ordered dependents-first: a
// package with no reverse dependencies sorts to the front, and packages
// many others depend on sort to the back, so §4.7's "last entry wins"
// favors the most foundational shared package. Packages caught in a
// dependency cycle sort to the front, in reverse of their input order.
func topologicalOrder(records []*repodata.PrefixRecord) []string {
	byName := make(map[string]*repodata.PrefixRecord, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	indegree := make(map[string]int, len(records))
	edges := make(map[string][]string) // dependency -> dependents
	for _, r := range records {
		indegree[r.Name] = 0
	}
	for _, r := range records {
		for _, dep := range r.Depends {
			depName := matchspec.DependencyName(dep)
			if _, ok := byName[depName]; !ok {
				continue
			}
			edges[depName] = append(edges[depName], r.Name)
			indegree[r.Name]++
		}
	}

	var queue []string
	for _, r := range records {
		if indegree[r.Name] == 0 {
			queue = append(queue, r.Name)
		}
	}

	var dependenciesFirst []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		dependenciesFirst = append(dependenciesFirst, name)
		for _, dependent := range edges[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	// Anything left (a cycle) is appended in input order; the reversal
	// below puts it first.
	if len(dependenciesFirst) < len(records) {
		seen := make(map[string]bool, len(dependenciesFirst))
		for _, n := range dependenciesFirst {
			seen[n] = true
		}
		for _, r := range records {
			if !seen[r.Name] {
				dependenciesFirst = append(dependenciesFirst, r.Name)
			}
		}
	}

	dependentsFirst := make([]string, len(dependenciesFirst))
	for i, n := range dependenciesFirst {
		dependentsFirst[len(dependenciesFirst)-1-i] = n
	}
	return dependentsFirst
}
