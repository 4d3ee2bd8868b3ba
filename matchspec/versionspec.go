// Package matchspec implements Conda's match-spec grammar: version
// constraint trees combined with AND (",") and OR ("|"), parenthesised
// grouping, and the package-selector string form
// "(channel(/subdir)::)(namespace:)name(version)(build)[key=value,...]".
package matchspec

import (
	"fmt"
	"strings"

	"github.com/a-h/solvent/version"
)

// ParseError is returned by ParseVersionSpec and ParseMatchSpec for malformed input.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid match spec %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// Op identifies a version comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpStartsWith // "=1.2" or "1.2.*": prefix match
	OpCompatible // "~=1.2"
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpStartsWith:
		return "="
	case OpCompatible:
		return "~="
	default:
		return "?"
	}
}

// VersionSpec is a tree of version constraints. The zero value matches any
// version, as does the AnyVersion spec that ParseVersionSpec returns for
// "*" or an empty string.
type VersionSpec struct {
	any   bool
	term  *versionTerm
	and   []VersionSpec
	or    []VersionSpec
}

type versionTerm struct {
	op  Op
	ver version.Version
}

// AnyVersion matches every version.
var AnyVersion = VersionSpec{any: true}

// Matches reports whether v satisfies the constraint tree.
func (vs VersionSpec) Matches(v version.Version) bool {
	switch {
	case vs.any:
		return true
	case vs.term != nil:
		return matchesTerm(*vs.term, v)
	case len(vs.and) > 0:
		for _, sub := range vs.and {
			if !sub.Matches(v) {
				return false
			}
		}
		return true
	case len(vs.or) > 0:
		for _, sub := range vs.or {
			if sub.Matches(v) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func matchesTerm(t versionTerm, v version.Version) bool {
	switch t.op {
	case OpEq:
		return v.Equal(t.ver)
	case OpNe:
		return !v.Equal(t.ver)
	case OpLt:
		return v.LessThan(t.ver)
	case OpLe:
		return v.LessThan(t.ver) || v.Equal(t.ver)
	case OpGt:
		return v.GreaterThan(t.ver)
	case OpGe:
		return v.GreaterThan(t.ver) || v.Equal(t.ver)
	case OpStartsWith:
		return v.StartsWith(t.ver)
	case OpCompatible:
		return v.CompatibleWith(t.ver)
	default:
		return false
	}
}

// String renders the canonical form of the constraint tree.
func (vs VersionSpec) String() string {
	switch {
	case vs.any:
		return "*"
	case vs.term != nil:
		if vs.term.op == OpStartsWith {
			return "=" + vs.term.ver.String()
		}
		return vs.term.op.String() + vs.term.ver.String()
	case len(vs.and) > 0:
		return joinSpecs(vs.and, ",")
	case len(vs.or) > 0:
		return joinSpecs(vs.or, "|")
	default:
		return "*"
	}
}

func joinSpecs(specs []VersionSpec, sep string) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, sep)
}

// ParseVersionSpec parses a single version constraint tree: "," is AND,
// "|" is OR (binding looser than AND), and parentheses group sub-trees.
func ParseVersionSpec(s string) (VersionSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" || s == "*.*" {
		return AnyVersion, nil
	}
	p := &specParser{input: s}
	vs, err := p.parseOr()
	if err != nil {
		return VersionSpec{}, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return VersionSpec{}, &ParseError{Input: s, Offset: p.pos, Reason: "unexpected trailing input"}
	}
	return vs, nil
}

type specParser struct {
	input string
	pos   int
}

func (p *specParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *specParser) parseOr() (VersionSpec, error) {
	first, err := p.parseAnd()
	if err != nil {
		return VersionSpec{}, err
	}
	terms := []VersionSpec{first}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != '|' {
			break
		}
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return VersionSpec{}, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return VersionSpec{or: terms}, nil
}

func (p *specParser) parseAnd() (VersionSpec, error) {
	first, err := p.parseTerm()
	if err != nil {
		return VersionSpec{}, err
	}
	terms := []VersionSpec{first}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ',' {
			break
		}
		p.pos++
		next, err := p.parseTerm()
		if err != nil {
			return VersionSpec{}, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return VersionSpec{and: terms}, nil
}

func (p *specParser) parseTerm() (VersionSpec, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return VersionSpec{}, &ParseError{Input: p.input, Offset: p.pos, Reason: "expected a constraint"}
	}
	if p.input[p.pos] == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return VersionSpec{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return VersionSpec{}, &ParseError{Input: p.input, Offset: p.pos, Reason: "expected ')'"}
		}
		p.pos++
		return inner, nil
	}

	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ',' && p.input[p.pos] != '|' && p.input[p.pos] != ')' {
		p.pos++
	}
	leaf := strings.TrimSpace(p.input[start:p.pos])
	return parseLeaf(p.input, start, leaf)
}

func parseLeaf(fullInput string, offset int, leaf string) (VersionSpec, error) {
	if leaf == "" {
		return VersionSpec{}, &ParseError{Input: fullInput, Offset: offset, Reason: "empty constraint"}
	}
	if leaf == "*" || leaf == "*.*" {
		return AnyVersion, nil
	}

	op, rest := splitOperator(leaf)
	glob := false
	if strings.HasSuffix(rest, ".*") {
		rest = strings.TrimSuffix(rest, ".*")
		glob = true
	} else if strings.HasSuffix(rest, "*") {
		rest = strings.TrimSuffix(rest, "*")
		glob = true
	}
	if glob && op == OpEq {
		// Bare "1.2.*" (no explicit operator) is a fuzzy prefix match.
		op = OpStartsWith
	}

	v, err := version.Parse(rest)
	if err != nil {
		return VersionSpec{}, &ParseError{Input: fullInput, Offset: offset, Reason: err.Error()}
	}
	return VersionSpec{term: &versionTerm{op: op, ver: v}}, nil
}

// splitOperator peels a leading comparison operator off s, defaulting to
// OpEq (exact match) when none is present.
func splitOperator(s string) (Op, string) {
	type prefixOp struct {
		prefix string
		op     Op
	}
	// Longest prefixes first so "==" isn't mistaken for "=".
	ops := []prefixOp{
		{"==", OpEq},
		{"!=", OpNe},
		{">=", OpGe},
		{"<=", OpLe},
		{"~=", OpCompatible},
		{">", OpGt},
		{"<", OpLt},
		{"=", OpStartsWith},
	}
	for _, po := range ops {
		if strings.HasPrefix(s, po.prefix) {
			return po.op, strings.TrimSpace(s[len(po.prefix):])
		}
	}
	return OpEq, s
}
