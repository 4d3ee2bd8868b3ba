// Package solver implements a CDCL SAT engine specialized to Conda's
// match-spec grammar: interned solvables and match-specs, watched-literal
// propagation, first-UIP conflict analysis, and a problem graph for
// unsatisfiable inputs.
package solver

// NameId interns a package name.
type NameId int32

// SolvableId names one candidate package record, or the sentinel RootSolvable.
type SolvableId int32

// MatchSpecId interns a parsed match-spec.
type MatchSpecId int32

// RootSolvable is the sentinel solvable asserted true at decision level 0;
// every top-level Install job is expressed as Requires(RootSolvable, spec).
const RootSolvable SolvableId = 0

// Literal is a solvable together with a polarity: Positive true means
// "install this solvable", false means "do not install it".
type Literal struct {
	Solvable SolvableId
	Positive bool
}

// Negate returns the opposite-polarity literal over the same solvable.
func (l Literal) Negate() Literal {
	return Literal{Solvable: l.Solvable, Positive: !l.Positive}
}

// Satisfied reports whether l is true under value, where value is the
// current assignment of l.Solvable.
func (l Literal) Satisfied(value bool) bool {
	return l.Positive == value
}
