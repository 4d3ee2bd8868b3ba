package solver

import (
	"context"
	"fmt"

	"github.com/a-h/solvent/matchspec"
	"github.com/a-h/solvent/repodata"
)

// JobKind identifies a top-level solver request.
type JobKind uint8

const (
	// JobInstall asks the solver to find and install one solvable matching Spec.
	JobInstall JobKind = iota
	// JobLock pins Solvable as the only acceptable candidate for its package name.
	JobLock
	// JobFavor biases candidate selection toward Solvable when it is tied
	// with other candidates, without forcing it.
	JobFavor
)

// Job is one top-level solver request.
type Job struct {
	Kind     JobKind
	Spec     MatchSpecId
	Solvable SolvableId
}

// Transaction is the solver's successful output: every solvable assigned
// true at the final decision level.
type Transaction struct {
	Installed []*repodata.RepoDataRecord
}

// CancelledError is returned when the caller's context is cancelled between
// propagation steps.
type CancelledError struct{ Cause error }

func (e *CancelledError) Error() string { return fmt.Sprintf("solve cancelled: %v", e.Cause) }
func (e *CancelledError) Unwrap() error { return e.Cause }

// Solver runs one CDCL solve against a Pool and DependencyProvider. A
// Solver is single-owner for the duration of one Solve call: its clause
// database, decision map, and trail are not shared or reused afterward.
type Solver struct {
	pool     *Pool
	provider DependencyProvider

	clauses []*Clause
	watches map[Literal][]int

	decisions *DecisionMap
	trail     *DecisionTrail
	level     int
	queue     []SolvableId

	instantiated map[SolvableId]bool
	nameSeen     map[NameId][]SolvableId
	forbidSeen   map[[2]SolvableId]bool
	favored      map[SolvableId]bool

	topLevelRequires []int

	// antecedents records, for each Learnt clause index, every clause index
	// consulted while deriving it, so problem-graph construction can walk
	// back through learnt clauses to the original domain clauses.
	antecedents map[int][]int
}

// NewSolver returns a Solver ready to run one Solve over pool using
// provider to resolve candidates and dependencies.
func NewSolver(pool *Pool, provider DependencyProvider) *Solver {
	return &Solver{
		pool:         pool,
		provider:     provider,
		watches:      make(map[Literal][]int),
		decisions:    newDecisionMap(pool.Len()),
		trail:        &DecisionTrail{},
		instantiated: make(map[SolvableId]bool),
		nameSeen:     make(map[NameId][]SolvableId),
		forbidSeen:   make(map[[2]SolvableId]bool),
		favored:      make(map[SolvableId]bool),
		antecedents:  make(map[int][]int),
	}
}

func (s *Solver) isFalse(lit Literal) bool {
	v, ok := s.decisions.Value(lit.Solvable)
	return ok && v != lit.Positive
}

func (s *Solver) isSatisfied(lit Literal) bool {
	v, ok := s.decisions.Value(lit.Solvable)
	return ok && v == lit.Positive
}

func (s *Solver) isAssigned(sol SolvableId) bool {
	_, ok := s.decisions.Value(sol)
	return ok
}

func (s *Solver) ensureCapacity() {
	s.decisions.grow(s.pool.Len())
}

func (s *Solver) addWatch(lit Literal, clauseIdx int) {
	s.watches[lit] = append(s.watches[lit], clauseIdx)
}

func (s *Solver) removeWatch(lit Literal, clauseIdx int) {
	list := s.watches[lit]
	for i, idx := range list {
		if idx == clauseIdx {
			list[i] = list[len(list)-1]
			s.watches[lit] = list[:len(list)-1]
			return
		}
	}
}

func (s *Solver) addClauseRaw(kind ClauseKind, literals []Literal, source SolvableId, spec MatchSpecId) int {
	idx := len(s.clauses)
	s.clauses = append(s.clauses, newClause(kind, literals, source, spec))
	return idx
}

// attach picks the clause's two initial watches (preferring literals that
// are not currently false), registers them in the watch map, and either
// reports an immediate conflict (no live literal) or performs the implied
// unit propagation (exactly one live literal, still unassigned).
func (s *Solver) attach(idx int) (conflictIdx int, isConflict bool) {
	c := s.clauses[idx]
	live := make([]int, 0, 2)
	for i, lit := range c.Literals {
		if !s.isFalse(lit) {
			live = append(live, i)
			if len(live) == 2 {
				break
			}
		}
	}
	switch len(live) {
	case 0:
		return idx, true
	case 1:
		c.Watch1, c.Watch2 = live[0], live[0]
		s.addWatch(c.Literals[live[0]], idx)
		lit := c.Literals[live[0]]
		if !s.isAssigned(lit.Solvable) {
			s.assign(lit, s.level, idx)
		}
		return -1, false
	default:
		c.Watch1, c.Watch2 = live[0], live[1]
		s.addWatch(c.Literals[live[0]], idx)
		s.addWatch(c.Literals[live[1]], idx)
		return -1, false
	}
}

func (s *Solver) assign(lit Literal, level int, cause int) {
	s.decisions.set(lit.Solvable, lit.Positive, level, cause)
	s.trail.push(trailEntry{solvable: lit.Solvable, value: lit.Positive, level: level, cause: cause})
	s.queue = append(s.queue, lit.Solvable)
}

// candidatesFor asks the provider for a match-spec's candidate list, growing
// the decision map if the provider interned new solvables.
func (s *Solver) candidatesFor(spec MatchSpecId) []SolvableId {
	candidates := s.provider.Candidates(spec)
	s.ensureCapacity()
	return candidates
}

// registerForbid adds ForbidMultipleInstances(B1, B2) once for every pair
// of candidates sharing a package name seen so far (§4.4.3).
func (s *Solver) registerForbid(candidates []SolvableId) (conflictIdx int, isConflict bool) {
	if len(candidates) == 0 {
		return -1, false
	}
	name := s.pool.NameOf(candidates[0])
	seen := s.nameSeen[name]
	for _, c := range candidates {
		alreadySeen := false
		for _, x := range seen {
			if x == c {
				alreadySeen = true
				break
			}
		}
		if alreadySeen {
			continue
		}
		for _, other := range seen {
			key := forbidKey(c, other)
			if s.forbidSeen[key] {
				continue
			}
			s.forbidSeen[key] = true
			idx := s.addClauseRaw(ClauseForbidMultipleInstances, []Literal{{Solvable: c, Positive: false}, {Solvable: other, Positive: false}}, -1, -1)
			if ci, bad := s.attach(idx); bad {
				return ci, true
			}
		}
		seen = append(seen, c)
	}
	s.nameSeen[name] = seen
	return -1, false
}

func forbidKey(a, b SolvableId) [2]SolvableId {
	if a < b {
		return [2]SolvableId{a, b}
	}
	return [2]SolvableId{b, a}
}

// instantiateSolvable adds the Requires/Constrains/ForbidMultipleInstances
// clauses implied by a's record, the first time a is assigned true (§4.4.3).
func (s *Solver) instantiateSolvable(a SolvableId) (conflictIdx int, isConflict bool) {
	if s.pool.IsRoot(a) {
		return -1, false
	}
	deps, known := s.provider.Dependencies(a)
	if !known {
		return -1, false
	}
	for _, specId := range deps.Depends {
		candidates := s.candidatesFor(specId)
		literals := make([]Literal, 0, len(candidates)+1)
		literals = append(literals, Literal{Solvable: a, Positive: false})
		for _, c := range candidates {
			literals = append(literals, Literal{Solvable: c, Positive: true})
		}
		idx := s.addClauseRaw(ClauseRequires, literals, a, specId)
		if ci, bad := s.attach(idx); bad {
			return ci, true
		}
		if ci, bad := s.registerForbid(candidates); bad {
			return ci, true
		}
	}
	for _, specId := range deps.Constrains {
		spec := s.pool.Spec(specId)
		nameOnly := s.pool.InternMatchSpec(matchspec.MatchSpec{Name: spec.Name})
		universe := s.candidatesFor(nameOnly)
		for _, b := range universe {
			rec := s.pool.Record(b)
			if spec.Matches(rec) {
				continue
			}
			idx := s.addClauseRaw(ClauseConstrains, []Literal{{Solvable: a, Positive: false}, {Solvable: b, Positive: false}}, a, specId)
			if ci, bad := s.attach(idx); bad {
				return ci, true
			}
		}
	}
	return -1, false
}

// propagate runs watched-literal BCP to fixpoint, instantiating a
// solvable's clauses the moment it is assigned true. It returns the
// conflicting clause index and false if propagation reaches a
// contradiction, or -1 and true on a clean fixpoint.
func (s *Solver) propagate() (conflictIdx int, ok bool) {
	for len(s.queue) > 0 {
		sol := s.queue[0]
		s.queue = s.queue[1:]
		value, _ := s.decisions.Value(sol)

		if value && !s.instantiated[sol] {
			s.instantiated[sol] = true
			if ci, bad := s.instantiateSolvable(sol); bad {
				return ci, false
			}
		}

		trigger := Literal{Solvable: sol, Positive: !value}
		watchers := append([]int(nil), s.watches[trigger]...)
		for _, idx := range watchers {
			c := s.clauses[idx]
			var watchIdx int
			switch {
			case c.Literals[c.Watch1] == trigger:
				watchIdx = c.Watch1
			case c.Literals[c.Watch2] == trigger:
				watchIdx = c.Watch2
			default:
				continue // already moved off this literal by an earlier iteration
			}
			otherIdx := c.otherWatch(watchIdx)
			other := c.Literals[otherIdx]
			if s.isSatisfied(other) {
				continue
			}
			replacement := -1
			for i, lit := range c.Literals {
				if i == watchIdx || i == otherIdx {
					continue
				}
				if !s.isFalse(lit) {
					replacement = i
					break
				}
			}
			if replacement >= 0 {
				s.removeWatch(trigger, idx)
				if watchIdx == c.Watch1 {
					c.Watch1 = replacement
				} else {
					c.Watch2 = replacement
				}
				s.addWatch(c.Literals[replacement], idx)
				continue
			}
			if s.isFalse(other) {
				return idx, false
			}
			s.assign(other, s.level, idx)
		}
	}
	return -1, true
}

func (s *Solver) clauseSatisfied(c *Clause) bool {
	for _, lit := range c.Literals {
		if s.isSatisfied(lit) {
			return true
		}
	}
	return false
}

// Solve runs the decision loop of §4.4.5 over jobs, returning a
// Transaction on success or a Problem when the jobs are unsatisfiable.
// ctx is checked between propagation steps for cooperative cancellation.
func (s *Solver) Solve(ctx context.Context, jobs []Job) (*Transaction, *Problem, error) {
	rootIdx := s.addClauseRaw(ClauseInstallRoot, []Literal{{Solvable: RootSolvable, Positive: true}}, -1, -1)

	for _, job := range jobs {
		switch job.Kind {
		case JobInstall:
			candidates := s.candidatesFor(job.Spec)
			if ci, bad := s.registerForbid(candidates); bad {
				return nil, s.buildProblem(ci), nil
			}
			literals := make([]Literal, 0, len(candidates)+1)
			literals = append(literals, Literal{Solvable: RootSolvable, Positive: false})
			for _, c := range candidates {
				literals = append(literals, Literal{Solvable: c, Positive: true})
			}
			idx := s.addClauseRaw(ClauseRequires, literals, -1, job.Spec)
			s.topLevelRequires = append(s.topLevelRequires, idx)
		case JobLock:
			name := s.pool.NameOf(job.Solvable)
			universe := s.candidatesFor(s.pool.InternMatchSpec(matchspec.MatchSpec{Name: s.pool.Name(name)}))
			idx := s.addClauseRaw(ClauseRequires, []Literal{{Solvable: RootSolvable, Positive: false}, {Solvable: job.Solvable, Positive: true}}, -1, -1)
			s.topLevelRequires = append(s.topLevelRequires, idx)
			for _, other := range universe {
				if other == job.Solvable {
					continue
				}
				lockIdx := s.addClauseRaw(ClauseLock, []Literal{{Solvable: RootSolvable, Positive: false}, {Solvable: other, Positive: false}}, -1, -1)
				if _, bad := s.attach(lockIdx); bad {
					// A lock conflicting with itself at setup time is only
					// possible if job.Solvable duplicates other; skip.
					continue
				}
			}
		case JobFavor:
			s.favored[job.Solvable] = true
		}
	}

	for _, idx := range s.topLevelRequires {
		if ci, bad := s.attach(idx); bad {
			return nil, s.buildProblem(ci), nil
		}
	}
	if ci, bad := s.attach(rootIdx); bad {
		return nil, s.buildProblem(ci), nil
	}

	if ci, ok := s.propagate(); !ok {
		if s.level == 0 {
			return nil, s.buildProblem(ci), nil
		}
		if p, err := s.resolveConflict(ctx, ci); p != nil || err != nil {
			return nil, p, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, &CancelledError{Cause: err}
		}

		target := -1
		var chosen SolvableId
		for _, idx := range s.topLevelRequires {
			c := s.clauses[idx]
			if s.clauseSatisfied(c) {
				continue
			}
			allUndecided := true
			for _, lit := range c.Literals[1:] {
				if s.isAssigned(lit.Solvable) {
					allUndecided = false
					break
				}
			}
			if !allUndecided {
				continue
			}
			target = idx
			chosen = c.Literals[1].Solvable
			for _, lit := range c.Literals[1:] {
				if s.favored[lit.Solvable] {
					chosen = lit.Solvable
					break
				}
			}
			break
		}
		if target == -1 {
			break
		}

		s.level++
		s.assign(Literal{Solvable: chosen, Positive: true}, s.level, noClause)

		ci, ok := s.propagate()
		if !ok {
			if s.level == 0 {
				return nil, s.buildProblem(ci), nil
			}
			p, err := s.resolveConflict(ctx, ci)
			if p != nil || err != nil {
				return nil, p, err
			}
		}
	}

	for id := SolvableId(1); int(id) < s.pool.Len(); id++ {
		if !s.isAssigned(id) {
			s.decisions.set(id, false, s.level, noClause)
		}
	}

	return s.buildTransaction(), nil, nil
}

// resolveConflict runs first-UIP analysis and backtracking until
// propagation reaches a clean fixpoint, or returns a Problem if the
// instance is unsatisfiable at level 0, or an error on cancellation.
func (s *Solver) resolveConflict(ctx context.Context, conflictIdx int) (*Problem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Cause: err}
		}
		if s.level == 0 {
			return s.buildProblem(conflictIdx), nil
		}
		learnt, backtrack, visited := s.analyze(conflictIdx)
		s.backtrackTo(backtrack)
		idx := s.addClauseRaw(ClauseLearnt, learnt, -1, -1)
		s.antecedents[idx] = visited
		ci, bad := s.attach(idx)
		if bad {
			conflictIdx = ci
			continue
		}
		ci, ok := s.propagate()
		if ok {
			return nil, nil
		}
		conflictIdx = ci
	}
}

func (s *Solver) buildTransaction() *Transaction {
	t := &Transaction{}
	for id := SolvableId(1); int(id) < s.pool.Len(); id++ {
		if v, ok := s.decisions.Value(id); ok && v {
			t.Installed = append(t.Installed, s.pool.Record(id))
		}
	}
	return t
}
