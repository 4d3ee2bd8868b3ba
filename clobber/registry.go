// Package clobber implements the Clobber Registry (§4.7): tracking which
// package owns each file in a prefix and resolving filename collisions
// deterministically via a suffix-renaming scheme.
package clobber

import (
	"fmt"
	"strings"

	"github.com/a-h/solvent/repodata"
)

// clobberSuffix separates a clobbered file's base path from the name of
// the package it was installed under when it lost the naming contest.
const clobberSuffix = "__clobber-from-"

// SuffixedPath returns path renamed to record that pkgName's copy of it
// lost a naming collision.
func SuffixedPath(path, pkgName string) string {
	return path + clobberSuffix + pkgName
}

// SplitSuffixedPath reports whether path carries a clobber suffix,
// returning the base path and the owning package name if so.
func SplitSuffixedPath(path string) (base, pkgName string, ok bool) {
	i := strings.LastIndex(path, clobberSuffix)
	if i < 0 {
		return "", "", false
	}
	return path[:i], path[i+len(clobberSuffix):], true
}

// Registry tracks path ownership across every package installed into one
// prefix.
type Registry struct {
	packageNames  []string
	packageIndex  map[string]int
	pathsRegistry map[string]int   // path -> owning package index
	clobbers      map[string][]int // path -> ordered package indices that tried to claim it
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		packageIndex:  make(map[string]int),
		pathsRegistry: make(map[string]int),
		clobbers:      make(map[string][]int),
	}
}

// indexFor returns name's package index, allocating a new one if name
// hasn't been seen before.
func (r *Registry) indexFor(name string) int {
	if idx, ok := r.packageIndex[name]; ok {
		return idx
	}
	idx := len(r.packageNames)
	r.packageNames = append(r.packageNames, name)
	r.packageIndex[name] = idx
	return idx
}

// Seed populates the registry from a prefix's already-installed records,
// per §4.7 "Seeding": files whose names already carry a clobber suffix are
// attributed to the suffixed package and recorded as a clobber against the
// base path's original owner.
func (r *Registry) Seed(records []*repodata.PrefixRecord) {
	for _, rec := range records {
		r.indexFor(rec.Name)
	}
	for _, rec := range records {
		idx := r.indexFor(rec.Name)
		for _, path := range rec.Files {
			if base, owner, ok := SplitSuffixedPath(path); ok {
				ownerIdx := r.indexFor(owner)
				r.clobbers[base] = appendUnique(r.clobbers[base], ownerIdx)
				r.pathsRegistry[path] = idx
				continue
			}
			r.pathsRegistry[path] = idx
		}
	}
}

func appendUnique(list []int, v int) []int {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// Register claims paths on behalf of name, returning a redirect map from
// original path to the suffixed path the caller should install under
// instead, for every path that was already claimed by another package
// (§4.7 "Registering a package's paths").
func (r *Registry) Register(name string, paths []string) map[string]string {
	idx := r.indexFor(name)
	redirects := make(map[string]string)

	for _, path := range paths {
		owner, claimed := r.pathsRegistry[path]
		if !claimed {
			r.pathsRegistry[path] = idx
			continue
		}
		if owner == idx {
			continue
		}
		r.clobbers[path] = appendUnique(r.clobbers[path], idx)
		redirects[path] = SuffixedPath(path, name)
	}
	return redirects
}

// Unregister releases name's claim on paths, used when a package is
// removed from the prefix. name's own entry is dropped from each path's
// pending clobber list, and a path name currently owns becomes
// unclaimed.
func (r *Registry) Unregister(name string, paths []string) {
	idx, ok := r.packageIndex[name]
	if !ok {
		return
	}
	for _, path := range paths {
		if owner, claimed := r.pathsRegistry[path]; claimed && owner == idx {
			delete(r.pathsRegistry, path)
		}
		if indices, ok := r.clobbers[path]; ok {
			r.clobbers[path] = removeValue(indices, idx)
		}
	}
}

func removeValue(list []int, v int) []int {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Clobbers reports every path with more than one claimant.
func (r *Registry) Clobbers() map[string][]string {
	out := make(map[string][]string, len(r.clobbers))
	for path, indices := range r.clobbers {
		if len(indices) == 0 {
			continue
		}
		names := make([]string, len(indices))
		for i, idx := range indices {
			names[i] = r.packageNames[idx]
		}
		out[path] = names
	}
	return out
}

// Owner returns the package name currently registered for path, if any.
func (r *Registry) Owner(path string) (string, bool) {
	idx, ok := r.pathsRegistry[path]
	if !ok {
		return "", false
	}
	return r.packageNames[idx], true
}

// Rename is one file rename the post-process winner resolution requires:
// From must be renamed to To on disk, and the PrefixRecord(s) referencing
// From must be rewritten to reference To instead.
type Rename struct {
	From, To string
}

// Resolve determines the winner for every contested path given a
// topologically sorted list of currently-installed package names
// (dependents first, so the last entry wins), per §4.7 "Post-process". It
// returns the renames required to bring the prefix into the winning state
// and updates the registry's ownership bookkeeping to match.
func (r *Registry) Resolve(topoSortedNames []string) ([]Rename, error) {
	position := make(map[string]int, len(topoSortedNames))
	for i, name := range topoSortedNames {
		position[name] = i
	}

	var renames []Rename
	for path, claimants := range r.clobbers {
		if len(claimants) == 0 {
			continue
		}
		currentOwnerIdx, ok := r.pathsRegistry[path]
		if !ok {
			return nil, fmt.Errorf("clobber: contested path %s has no current owner", path)
		}
		// The package currently materialized at path is itself a
		// contender, even if it never appeared in clobbers (that list
		// only records packages that lost the claim at Register time).
		indices := appendUnique(claimants, currentOwnerIdx)

		winnerIdx := indices[0]
		winnerPos := -1
		for _, idx := range indices {
			name := r.packageNames[idx]
			pos, ok := position[name]
			if !ok {
				continue
			}
			if pos > winnerPos {
				winnerPos = pos
				winnerIdx = idx
			}
		}
		winnerName := r.packageNames[winnerIdx]
		currentOwnerName := r.packageNames[currentOwnerIdx]
		if currentOwnerIdx == winnerIdx {
			continue
		}

		renames = append(renames,
			Rename{From: path, To: SuffixedPath(path, currentOwnerName)},
			Rename{From: SuffixedPath(path, winnerName), To: path},
		)

		r.pathsRegistry[path] = winnerIdx
	}
	return renames, nil
}
