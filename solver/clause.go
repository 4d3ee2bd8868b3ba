package solver

// ClauseKind identifies which rule produced a clause, used only for
// diagnostics (problem-graph rendering) — propagation treats every kind
// identically as a disjunction of literals.
type ClauseKind uint8

const (
	ClauseInstallRoot ClauseKind = iota
	ClauseRequires
	ClauseForbidMultipleInstances
	ClauseLock
	ClauseConstrains
	ClauseLearnt
)

// noClause marks "no cause" (a branching decision, not an implication).
const noClause = -1

// Clause is a disjunction of literals. Watch1 and Watch2 index into
// Literals and are the two literals whose (de)assignment can make the
// clause worth re-examining.
type Clause struct {
	Kind     ClauseKind
	Literals []Literal
	Watch1   int
	Watch2   int

	// Source is the solvable whose record generated this clause (the "A" in
	// Requires(A, M) / Constrains(A, B)); -1 for clauses with no such
	// solvable (InstallRoot, Learnt, and others the solver adds itself).
	Source SolvableId
	// Spec is the match-spec a Requires or Constrains clause was derived
	// from, used for problem-graph rendering; -1 if not applicable.
	Spec MatchSpecId
}

func newClause(kind ClauseKind, literals []Literal, source SolvableId, spec MatchSpecId) *Clause {
	c := &Clause{Kind: kind, Literals: literals, Source: source, Spec: spec}
	c.Watch1, c.Watch2 = 0, 0
	if len(literals) > 1 {
		c.Watch2 = 1
	}
	return c
}

// otherWatch returns the index of the watch that is not at.
func (c *Clause) otherWatch(at int) int {
	if at == c.Watch1 {
		return c.Watch2
	}
	return c.Watch1
}

// hasSpec reports whether the clause carries a valid MatchSpecId.
func (c *Clause) hasSpec() bool {
	return c.Spec >= 0
}
