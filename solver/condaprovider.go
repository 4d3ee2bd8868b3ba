package solver

import (
	"sort"

	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/repodata"
	"github.com/a-h/solvent/version"
)

// Strategy selects the direction candidate versions are preferred in
// (§4.4.2 tier 2).
type Strategy uint8

const (
	// StrategyDefault prefers newer versions.
	StrategyDefault Strategy = iota
	// StrategyLowestVersion prefers older versions.
	StrategyLowestVersion
)

// CondaProvider is the concrete DependencyProvider (§9 design note) that
// resolves candidates and dependencies against a fixed universe of
// RepoDataRecords, e.g. the set a gateway.Load call returned.
type CondaProvider struct {
	pool     *Pool
	strategy Strategy
	byName   map[string][]*repodata.RepoDataRecord

	sortedByName map[NameId][]SolvableId
	matchCache   map[MatchSpecId][]SolvableId
}

// NewCondaProvider indexes records by package name and returns a provider
// ready to back a Solver over pool.
func NewCondaProvider(pool *Pool, records []*repodata.RepoDataRecord, strategy Strategy) *CondaProvider {
	byName := make(map[string][]*repodata.RepoDataRecord)
	for _, r := range records {
		byName[r.Name] = append(byName[r.Name], r)
	}
	return &CondaProvider{
		pool:         pool,
		strategy:     strategy,
		byName:       byName,
		sortedByName: make(map[NameId][]SolvableId),
		matchCache:   make(map[MatchSpecId][]SolvableId),
	}
}

func (p *CondaProvider) candidatesForName(name string) []SolvableId {
	nameId := p.pool.InternName(name)
	if cached, ok := p.sortedByName[nameId]; ok {
		return cached
	}
	recs := p.byName[name]
	ids := make([]SolvableId, len(recs))
	for i, r := range recs {
		ids[i] = p.pool.AddSolvable(r)
	}
	p.sortCandidates(ids)
	p.sortedByName[nameId] = ids
	return ids
}

// Candidates implements DependencyProvider: every known solvable matching
// spec, in the name's pre-sorted best-first order.
func (p *CondaProvider) Candidates(specId MatchSpecId) []SolvableId {
	if cached, ok := p.matchCache[specId]; ok {
		return cached
	}
	spec := p.pool.Spec(specId)
	all := p.candidatesForName(spec.Name)
	out := make([]SolvableId, 0, len(all))
	for _, id := range all {
		if spec.Matches(p.pool.Record(id)) {
			out = append(out, id)
		}
	}
	p.matchCache[specId] = out
	return out
}

// Dependencies implements DependencyProvider by parsing a record's Depends
// and Constrains strings into interned match-specs. A malformed dependency
// string is skipped rather than aborting the whole solve: a single bad
// entry in one candidate's metadata should not make every other candidate
// unreachable.
func (p *CondaProvider) Dependencies(s SolvableId) (Dependencies, bool) {
	if p.pool.IsRoot(s) {
		return Dependencies{}, false
	}
	rec := p.pool.Record(s)
	var d Dependencies
	for _, dep := range rec.Depends {
		ms, err := matchspec.ParseMatchSpec(dep)
		if err != nil {
			continue
		}
		d.Depends = append(d.Depends, p.pool.InternMatchSpec(ms))
	}
	for _, c := range rec.Constrains {
		ms, err := matchspec.ParseMatchSpec(c)
		if err != nil {
			continue
		}
		d.Constrains = append(d.Constrains, p.pool.InternMatchSpec(ms))
	}
	return d, true
}

// sortCandidates implements the four-tier comparator of §4.4.2.
func (p *CondaProvider) sortCandidates(ids []SolvableId) {
	sort.SliceStable(ids, func(i, j int) bool {
		return p.less(ids[i], ids[j])
	})
}

func (p *CondaProvider) less(a, b SolvableId) bool {
	ra, rb := p.pool.Record(a), p.pool.Record(b)

	ta, tb := len(ra.TrackFeatures) > 0, len(rb.TrackFeatures) > 0
	if ta != tb {
		return !ta // without track_features sorts first
	}

	va, _ := ra.ParsedVersion()
	vb, _ := rb.ParsedVersion()
	if !va.Equal(vb) {
		if p.strategy == StrategyLowestVersion {
			return va.LessThan(vb)
		}
		return va.GreaterThan(vb)
	}

	if ra.BuildNumber != rb.BuildNumber {
		return ra.BuildNumber > rb.BuildNumber
	}

	if c := p.compareSharedDependencies(&ra.PackageRecord, &rb.PackageRecord); c != 0 {
		return c < 0
	}

	return ra.Timestamp > rb.Timestamp
}

// compareSharedDependencies implements tier 4: for every dependency name
// common to both records, compare the highest version selectable under
// each record's own constraint for that name, lexicographically by name.
// Returns <0 if a should sort first, >0 if b should, 0 if no shared
// dependency name (or none of them differ) broke the tie — the fallback is
// timestamp, preserved per the open question in §9.
func (p *CondaProvider) compareSharedDependencies(a, b *repodata.PackageRecord) int {
	namesA := depNamesToStrings(a.Depends)
	namesB := depNamesToStrings(b.Depends)

	var common []string
	for name := range namesA {
		if _, ok := namesB[name]; ok {
			common = append(common, name)
		}
	}
	sort.Strings(common)

	for _, name := range common {
		maxA := p.maxVersionFor(a, namesA[name])
		maxB := p.maxVersionFor(b, namesB[name])
		if maxA.IsZero() && maxB.IsZero() {
			continue
		}
		if !maxA.Equal(maxB) {
			if maxA.GreaterThan(maxB) {
				return -1
			}
			return 1
		}
	}
	return 0
}

func depNamesToStrings(depends []string) map[string]string {
	out := make(map[string]string, len(depends))
	for _, dep := range depends {
		name := matchspec.DependencyName(dep)
		if name == "" {
			continue
		}
		if _, exists := out[name]; !exists {
			out[name] = dep
		}
	}
	return out
}

func (p *CondaProvider) maxVersionFor(rec *repodata.PackageRecord, dep string) version.Version {
	ms, err := matchspec.ParseMatchSpec(dep)
	if err != nil {
		return version.Version{}
	}
	specId := p.pool.InternMatchSpec(ms)
	candidates := p.Candidates(specId)
	var best version.Version
	found := false
	for _, id := range candidates {
		v, err := p.pool.Record(id).ParsedVersion()
		if err != nil {
			continue
		}
		if !found || v.GreaterThan(best) {
			best = v
			found = true
		}
	}
	return best
}
