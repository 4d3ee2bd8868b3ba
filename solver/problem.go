package solver

import (
	"fmt"
	"sort"
	"strings"
)

// Unresolved is the sentinel "no candidate satisfies this dependency" node
// in a Problem graph.
const Unresolved SolvableId = -1

// RequireEdge is a Requires(spec) edge from a requiring solvable (or
// RootSolvable for a top-level job) to the candidates that satisfy Spec,
// or to Unresolved if none do.
type RequireEdge struct {
	From SolvableId
	Spec MatchSpecId
	To   []SolvableId
}

// ConflictEdge is a Conflict(kind) edge between two solvables that cannot
// both be installed.
type ConflictEdge struct {
	From, To SolvableId
	Kind     string // "Locked", "ForbidMultipleInstances", or "Constrains"
	Spec     MatchSpecId
}

// ProblemGraph is the directed implication graph constructed from the
// clauses that participate in an unsatisfiable solve (§4.4.7).
type ProblemGraph struct {
	pool      *Pool
	requires  []RequireEdge
	conflicts []ConflictEdge

	installableCache map[SolvableId]bool
}

// Problem is returned by Solve when jobs are unsatisfiable.
type Problem struct {
	Graph *ProblemGraph
}

// buildProblem walks the implication graph back from conflictIdx through
// any learnt clauses' recorded antecedents, collecting the original
// Requires/Constrains/ForbidMultipleInstances/Lock clauses that
// participate, then renders them into a ProblemGraph.
func (s *Solver) buildProblem(conflictIdx int) *Problem {
	participating := make(map[int]bool)
	var walk func(idx int)
	walk = func(idx int) {
		if idx < 0 || participating[idx] {
			return
		}
		participating[idx] = true
		c := s.clauses[idx]
		if c.Kind == ClauseLearnt {
			for _, a := range s.antecedents[idx] {
				walk(a)
			}
		}
	}
	walk(conflictIdx)
	for _, te := range s.trail.entries {
		if te.cause >= 0 {
			walk(te.cause)
		}
	}

	g := &ProblemGraph{pool: s.pool, installableCache: make(map[SolvableId]bool)}
	var indices []int
	for idx := range participating {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		c := s.clauses[idx]
		switch c.Kind {
		case ClauseRequires:
			from := c.Source
			if from < 0 {
				from = RootSolvable
			}
			var to []SolvableId
			for _, lit := range c.Literals {
				if lit.Positive {
					to = append(to, lit.Solvable)
				}
			}
			if len(to) == 0 {
				to = []SolvableId{Unresolved}
			}
			g.requires = append(g.requires, RequireEdge{From: from, Spec: c.Spec, To: to})
		case ClauseConstrains:
			g.conflicts = append(g.conflicts, ConflictEdge{From: c.Literals[0].Solvable, To: c.Literals[1].Solvable, Kind: "Constrains", Spec: c.Spec})
		case ClauseForbidMultipleInstances:
			g.conflicts = append(g.conflicts, ConflictEdge{From: c.Literals[0].Solvable, To: c.Literals[1].Solvable, Kind: "ForbidMultipleInstances"})
		case ClauseLock:
			g.conflicts = append(g.conflicts, ConflictEdge{From: RootSolvable, To: c.Literals[1].Solvable, Kind: "Locked"})
		}
	}
	return &Problem{Graph: g}
}

func (g *ProblemGraph) conflictsFrom(id SolvableId) []ConflictEdge {
	var out []ConflictEdge
	for _, e := range g.conflicts {
		if e.From == id || e.To == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *ProblemGraph) requiresFrom(id SolvableId) []RequireEdge {
	var out []RequireEdge
	for _, e := range g.requires {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Installable reports whether no path from id reaches Unresolved or a
// conflict edge, propagating non-installability backward from leaves.
func (g *ProblemGraph) Installable(id SolvableId) bool {
	if id == Unresolved {
		return false
	}
	if v, ok := g.installableCache[id]; ok {
		return v
	}
	g.installableCache[id] = true // break cycles optimistically
	result := true
	if len(g.conflictsFrom(id)) > 0 {
		result = false
	}
	if result {
		for _, e := range g.requiresFrom(id) {
			anyInstallable := false
			for _, to := range e.To {
				if to != Unresolved && g.Installable(to) {
					anyInstallable = true
					break
				}
			}
			if !anyInstallable {
				result = false
				break
			}
		}
	}
	g.installableCache[id] = result
	return result
}

func (g *ProblemGraph) label(id SolvableId) string {
	if id == RootSolvable {
		return "the requested packages"
	}
	if id == Unresolved {
		return "nothing provides"
	}
	r := g.pool.Record(id)
	if r == nil {
		return fmt.Sprintf("solvable#%d", id)
	}
	return fmt.Sprintf("%s=%s=%s", r.Name, r.Version, r.Build)
}

// Report renders a human-readable description of the conflict: a pre-order
// walk from the root, grouping outgoing Requires edges by match-spec and
// sorting installable branches last, and listing every candidate of one
// Requires edge as "v1 | v2 | v3". Candidates are not merged by shared
// successors; each candidate's own subtree is still walked separately.
func (g *ProblemGraph) Report() string {
	var b strings.Builder
	visited := make(map[SolvableId]bool)
	g.writeNode(&b, RootSolvable, 0, visited)
	return b.String()
}

func (g *ProblemGraph) writeNode(b *strings.Builder, id SolvableId, depth int, visited map[SolvableId]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	indent := strings.Repeat("  ", depth)

	edges := append([]RequireEdge(nil), g.requiresFrom(id)...)
	sort.SliceStable(edges, func(i, j int) bool {
		ii, ij := g.Installable(edgeRepresentative(edges[i])), g.Installable(edgeRepresentative(edges[j]))
		if ii != ij {
			return !ii // non-installable first
		}
		return g.pool.Spec(edges[i].Spec).String() < g.pool.Spec(edges[j].Spec).String()
	})

	for _, e := range edges {
		spec := g.pool.Spec(e.Spec)
		if len(e.To) == 1 && e.To[0] == Unresolved {
			fmt.Fprintf(b, "%s%s requires %s, but no candidates were found for %s\n", indent, g.label(id), spec.String(), spec.String())
			continue
		}
		versions := mergeCandidateLabels(g, e.To)
		installable := g.Installable(e.To[0])
		for _, to := range e.To[1:] {
			installable = installable || g.Installable(to)
		}
		fmt.Fprintf(b, "%s%s requires %s, candidates: %s (installable: %t)\n", indent, g.label(id), spec.String(), versions, installable)
		for _, to := range e.To {
			if !g.Installable(to) {
				for _, ce := range g.conflictsFrom(to) {
					other := ce.To
					if other == to {
						other = ce.From
					}
					fmt.Fprintf(b, "%s  %s conflicts with %s (%s)\n", indent, g.label(to), g.label(other), ce.Kind)
				}
			}
			g.writeNode(b, to, depth+1, visited)
		}
	}
}

func edgeRepresentative(e RequireEdge) SolvableId {
	if len(e.To) == 0 {
		return Unresolved
	}
	return e.To[0]
}

func mergeCandidateLabels(g *ProblemGraph, ids []SolvableId) string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, g.label(id))
	}
	return strings.Join(labels, " | ")
}
