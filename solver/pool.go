package solver

import (
	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/repodata"
)

// Pool owns every interned name, match-spec, and solvable used during a
// solve. Resolver-internal state refers to records only through these
// integer ids, never through long-lived pointers into the Pool, so the
// solver never needs to borrow across iterations (design note §9).
type Pool struct {
	names   []string
	nameIds map[string]NameId

	solvables  []solvableEntry
	recordKeys map[string]SolvableId

	specs    []matchspec.MatchSpec
	specIds  map[string]MatchSpecId
}

type solvableEntry struct {
	name   NameId
	record *repodata.RepoDataRecord // nil for RootSolvable
}

// NewPool returns a Pool pre-seeded with the root solvable at index 0.
func NewPool() *Pool {
	p := &Pool{
		nameIds:    make(map[string]NameId),
		recordKeys: make(map[string]SolvableId),
		specIds:    make(map[string]MatchSpecId),
	}
	p.solvables = append(p.solvables, solvableEntry{}) // RootSolvable
	return p
}

// InternName returns the NameId for name, allocating one if unseen.
func (p *Pool) InternName(name string) NameId {
	if id, ok := p.nameIds[name]; ok {
		return id
	}
	id := NameId(len(p.names))
	p.names = append(p.names, name)
	p.nameIds[name] = id
	return id
}

// Name returns the interned string for id.
func (p *Pool) Name(id NameId) string {
	return p.names[id]
}

// AddSolvable interns a RepoDataRecord, returning its existing SolvableId if
// an identical (name, version, build, sha256, filename, channel) record was
// already added.
func (p *Pool) AddSolvable(r *repodata.RepoDataRecord) SolvableId {
	key := r.Name + "\x00" + r.Version + "\x00" + r.Build + "\x00" + r.SHA256 + "\x00" + r.Filename + "\x00" + r.Channel
	if id, ok := p.recordKeys[key]; ok {
		return id
	}
	id := SolvableId(len(p.solvables))
	p.solvables = append(p.solvables, solvableEntry{name: p.InternName(r.Name), record: r})
	p.recordKeys[key] = id
	return id
}

// Record returns the RepoDataRecord for id, or nil for RootSolvable.
func (p *Pool) Record(id SolvableId) *repodata.RepoDataRecord {
	return p.solvables[id].record
}

// NameOf returns the interned name id of the package id names.
func (p *Pool) NameOf(id SolvableId) NameId {
	return p.solvables[id].name
}

// IsRoot reports whether id is the sentinel root solvable.
func (p *Pool) IsRoot(id SolvableId) bool {
	return id == RootSolvable
}

// Len returns the number of interned solvables, including the root.
func (p *Pool) Len() int {
	return len(p.solvables)
}

// InternMatchSpec interns a parsed match-spec by its canonical string form.
func (p *Pool) InternMatchSpec(m matchspec.MatchSpec) MatchSpecId {
	key := m.String()
	if id, ok := p.specIds[key]; ok {
		return id
	}
	id := MatchSpecId(len(p.specs))
	p.specs = append(p.specs, m)
	p.specIds[key] = id
	return id
}

// Spec returns the match-spec interned as id.
func (p *Pool) Spec(id MatchSpecId) matchspec.MatchSpec {
	return p.specs[id]
}
