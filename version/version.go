// Package version implements Conda's version grammar and total ordering:
// an optional integer epoch, a dot/dash/underscore-delimited sequence of
// numeric or alphabetic components, and an optional "+"-prefixed local
// version tail.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is returned by Parse when the input does not conform to the
// Conda version grammar.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// componentKind distinguishes the three classes of version component.
type componentKind uint8

const (
	kindNumeric componentKind = iota
	kindAlpha
	kindSentinel // only produced transiently, when padding a shorter component list
)

type component struct {
	kind componentKind
	num  int64
	str  string // lower-cased, for kindAlpha
}

func (c component) equal(o component) bool {
	if c.kind != o.kind {
		return false
	}
	if c.kind == kindNumeric {
		return c.num == o.num
	}
	return c.str == o.str
}

func (c component) String() string {
	switch c.kind {
	case kindNumeric:
		return strconv.FormatInt(c.num, 10)
	case kindSentinel:
		return "_"
	default:
		return c.str
	}
}

// postReleaseTokens rank above ordinary alphabetic tokens but below numeric
// components, per the component tiering rule.
var postReleaseTokens = map[string]bool{"post": true, "rev": true, "r": true}

// tier implements "dev < _ < alphabetic < post-release tokens < numeric".
func (c component) tier() int {
	switch c.kind {
	case kindNumeric:
		return 4
	case kindSentinel:
		return 1
	default:
		switch {
		case c.str == "dev":
			return 0
		case postReleaseTokens[c.str]:
			return 3
		default:
			return 2
		}
	}
}

// Version is a parsed, comparable Conda version.
type Version struct {
	epoch   int64
	release []component
	local   []component
	raw     string
}

// Parse parses a Conda version string of the form
// "[epoch!]component(sep component)*[+local]".
func Parse(s string) (Version, error) {
	v := Version{raw: s}
	rest := s
	if idx := strings.IndexByte(rest, '!'); idx >= 0 {
		epochStr := rest[:idx]
		n, err := strconv.ParseInt(epochStr, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: s, Offset: 0, Reason: "epoch must be an integer"}
		}
		v.epoch = n
		rest = rest[idx+1:]
	}

	releasePart := rest
	localPart := ""
	hasLocal := false
	if idx := strings.IndexByte(rest, '+'); idx >= 0 {
		releasePart = rest[:idx]
		localPart = rest[idx+1:]
		hasLocal = true
	}

	if releasePart == "" {
		return Version{}, &ParseError{Input: s, Offset: 0, Reason: "empty version"}
	}
	if hasLocal && localPart == "" {
		return Version{}, &ParseError{Input: s, Offset: len(s), Reason: "empty local version after '+'"}
	}

	comps, err := parseComponents(releasePart)
	if err != nil {
		return Version{}, &ParseError{Input: s, Offset: strings.Index(s, releasePart), Reason: err.Error()}
	}
	v.release = comps

	if hasLocal {
		lc, err := parseComponents(localPart)
		if err != nil {
			return Version{}, &ParseError{Input: s, Offset: strings.Index(s, localPart), Reason: err.Error()}
		}
		v.local = lc
	}

	return v, nil
}

// MustParse is Parse but panics on error; intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseComponents splits a version segment into alternating numeric and
// alphabetic runs. Explicit separators ('.', '-', '_') are consumed without
// producing a component; a digit/alpha class change with no explicit
// separator also starts a new component (so "1.0a1" yields [1, 0, a, 1]).
func parseComponents(s string) ([]component, error) {
	var comps []component
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '.' || c == '-' || c == '_':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			n, err := strconv.ParseInt(s[i:j], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("numeric component %q out of range", s[i:j])
			}
			comps = append(comps, component{kind: kindNumeric, num: n})
			i = j
		case isAlpha(c):
			j := i
			for j < len(s) && isAlpha(s[j]) {
				j++
			}
			comps = append(comps, component{kind: kindAlpha, str: strings.ToLower(s[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("no version components")
	}
	return comps, nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// padFor returns the padding component used when one version's component
// list is shorter than the other's at a given index: the "_" sentinel if the
// opposing component is a post-release token, otherwise a numeric zero (so
// "1.0a1" < "1.0" but "1.0" < "1.0.post1").
func padFor(opposing component) component {
	if opposing.tier() == 3 {
		return component{kind: kindSentinel}
	}
	return component{kind: kindNumeric, num: 0}
}

func compareComponent(a, b component) int {
	ta, tb := a.tier(), b.tier()
	if ta != tb {
		return cmpInt(ta, tb)
	}
	switch ta {
	case 4:
		return cmpInt64(a.num, b.num)
	case 2, 0, 3:
		return strings.Compare(a.str, b.str)
	default:
		return 0
	}
}

func compareComponents(a, b []component) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var ac, bc component
		haveA := i < len(a)
		haveB := i < len(b)
		switch {
		case haveA && haveB:
			ac, bc = a[i], b[i]
		case haveA:
			ac = a[i]
			bc = padFor(ac)
		case haveB:
			bc = b[i]
			ac = padFor(bc)
		}
		if c := compareComponent(ac, bc); c != 0 {
			return c
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Compare returns -1, 0, or 1 according to whether v sorts before, equal to,
// or after o. Epoch dominates, then release components, then local
// components.
func (v Version) Compare(o Version) int {
	if v.epoch != o.epoch {
		return cmpInt64(v.epoch, o.epoch)
	}
	if c := compareComponents(v.release, o.release); c != 0 {
		return c
	}
	return compareComponents(v.local, o.local)
}

func (v Version) Equal(o Version) bool      { return v.Compare(o) == 0 }
func (v Version) LessThan(o Version) bool   { return v.Compare(o) < 0 }
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }

// StartsWith implements the prefix relation used by "=X.Y.*" match-specs:
// every release component of the prefix must equal, in order, the
// corresponding component of v. The epoch must match; local versions are
// ignored, matching Conda's treatment of `=` as a release-only prefix test.
func (v Version) StartsWith(prefix Version) bool {
	if v.epoch != prefix.epoch {
		return false
	}
	if len(prefix.release) > len(v.release) {
		return false
	}
	for i, pc := range prefix.release {
		if !v.release[i].equal(pc) {
			return false
		}
	}
	return true
}

// CompatibleWith implements "~=" (compatible release): v is reachable from
// base by incrementing only the last significant release component. It
// requires v >= base and v to share every release component of base except
// the last one.
func (v Version) CompatibleWith(base Version) bool {
	if base.Compare(v) > 0 {
		return false
	}
	if len(base.release) < 2 {
		return true
	}
	prefix := Version{epoch: base.epoch, release: base.release[:len(base.release)-1]}
	return v.StartsWith(prefix)
}

// Bump increments the last release component, used by property tests that
// assert a.StartsWith(b) implies a < b.Bump().
func (v Version) Bump() Version {
	release := make([]component, len(v.release))
	copy(release, v.release)
	last := len(release) - 1
	if last < 0 {
		release = append(release, component{kind: kindNumeric, num: 1})
	} else if release[last].kind == kindNumeric {
		release[last] = component{kind: kindNumeric, num: release[last].num + 1}
	} else {
		release = append(release, component{kind: kindNumeric, num: 1})
	}
	return Version{epoch: v.epoch, release: release, local: v.local}
}

// String renders the canonical form: "[epoch!]release[+local]", components
// joined with '.'.
func (v Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	writeComponents(&b, v.release)
	if len(v.local) > 0 {
		b.WriteByte('+')
		writeComponents(&b, v.local)
	}
	return b.String()
}

func writeComponents(b *strings.Builder, comps []component) {
	for i, c := range comps {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(c.String())
	}
}

// IsZero reports whether v is the zero Version (never produced by Parse).
func (v Version) IsZero() bool { return len(v.release) == 0 && v.epoch == 0 && v.raw == "" }
