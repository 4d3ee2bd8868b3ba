package matchspec

import (
	"strconv"
	"strings"
)

// ParseMatchSpec parses a canonical or legacy match-spec string:
// "(channel(/subdir)::)(namespace:)name(version)(build)[key=value,...]".
// Legacy "name=version=build" pinning and "name version build" space-
// separated forms are both accepted, matching Conda's historical string
// representations. Key-value pairs inside "[...]" override any value
// already parsed from outside the brackets.
func ParseMatchSpec(s string) (MatchSpec, error) {
	raw := strings.TrimSpace(s)
	body, bracket, err := splitBracket(raw)
	if err != nil {
		return MatchSpec{}, err
	}

	var m MatchSpec

	channel, subdir, rest := splitChannel(body)
	m.Channel, m.Subdir = channel, subdir

	namespace, rest := splitNamespace(rest)
	m.Namespace = namespace

	name, versionStr, buildStr, err := splitNameVersionBuild(rest)
	if err != nil {
		return MatchSpec{}, &ParseError{Input: raw, Offset: 0, Reason: err.Error()}
	}
	m.Name = name

	if versionStr != "" && versionStr != "*" {
		vs, err := ParseVersionSpec(versionStr)
		if err != nil {
			return MatchSpec{}, err
		}
		m.Version = &vs
	}
	if buildStr != "" && buildStr != "*" {
		bm := newBuildMatcher(buildStr)
		m.Build = &bm
	}

	if err := applyBracket(&m, bracket); err != nil {
		return MatchSpec{}, &ParseError{Input: raw, Offset: 0, Reason: err.Error()}
	}

	return m, nil
}

// splitBracket extracts a trailing "[key=value,...]" block, if present.
func splitBracket(s string) (body, bracket string, err error) {
	if !strings.HasSuffix(s, "]") {
		return s, "", nil
	}
	idx := strings.LastIndexByte(s, '[')
	if idx < 0 {
		return "", "", &ParseError{Input: s, Offset: 0, Reason: "unmatched ']'"}
	}
	return strings.TrimSpace(s[:idx]), s[idx+1 : len(s)-1], nil
}

// splitChannel peels an optional "channel(/subdir)::" prefix.
func splitChannel(s string) (channel, subdir, rest string) {
	idx := strings.Index(s, "::")
	if idx < 0 {
		return "", "", s
	}
	prefix := s[:idx]
	rest = s[idx+2:]
	if slash := strings.IndexByte(prefix, '/'); slash >= 0 {
		return prefix[:slash], prefix[slash+1:], rest
	}
	return prefix, "", rest
}

// splitNamespace peels an optional "namespace:" prefix. Namespace is
// reserved for a future feature (see spec.md §3); this only recognises the
// syntax so it round-trips, and ignores a bare leading colon used by
// operators like "<" etc. which never contain ':'.
func splitNamespace(s string) (namespace, rest string) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return "", s
	}
	// A namespace token must not contain whitespace or operator characters.
	candidate := s[:idx]
	if candidate == "" || strings.ContainsAny(candidate, " =<>!~*") {
		return "", s
	}
	return candidate, s[idx+1:]
}

// operatorStarts lists the characters that can open a glued version
// constraint immediately after a package name, e.g. "foo>=1.0".
const operatorStarts = "=!<>~"

// splitNameVersionBuild splits the remainder into name, version, and build
// components, handling these historical forms:
// "name", "name version", "name version build", "name=version=build", and
// "name<op>version" with no separating space.
func splitNameVersionBuild(s string) (name, versionStr, buildStr string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", "", nil
	}

	// Legacy "name=version=build" form: exactly two '=' splits, a
	// non-empty version (so "foo==1.0" is not taken for it), and the
	// name itself contains none of the operator characters.
	if fields := strings.Split(s, "="); len(fields) == 3 && fields[1] != "" && !strings.ContainsAny(fields[0], operatorStarts+" ") {
		return strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), strings.TrimSpace(fields[2]), nil
	}

	// Space-separated "name version build".
	if fields := strings.Fields(s); len(fields) > 1 {
		name = fields[0]
		if strings.ContainsAny(name, operatorStarts) {
			return "", "", "", &ParseError{Input: s, Offset: 0, Reason: "package name must precede any version operator"}
		}
		switch len(fields) {
		case 2:
			return name, fields[1], "", nil
		case 3:
			return name, fields[1], fields[2], nil
		default:
			return name, fields[1], strings.Join(fields[2:], " "), nil
		}
	}

	// A single token: either a bare name, or a name with a glued operator
	// ("foo>=1.0", "foo==1.0").
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(operatorStarts, s[i]) >= 0 {
			return s[:i], s[i:], "", nil
		}
	}
	return s, "", "", nil
}

func applyBracket(m *MatchSpec, bracket string) error {
	bracket = strings.TrimSpace(bracket)
	if bracket == "" {
		return nil
	}
	for _, pair := range splitBracketPairs(bracket) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		switch key {
		case "version":
			vs, err := ParseVersionSpec(value)
			if err != nil {
				return err
			}
			m.Version = &vs
		case "build", "build_string":
			bm := newBuildMatcher(value)
			m.Build = &bm
		case "build_number":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			m.BuildNumber = &n
		case "channel":
			m.Channel = value
		case "subdir":
			m.Subdir = value
		case "namespace":
			m.Namespace = value
		case "md5":
			m.MD5 = value
		case "sha256":
			m.SHA256 = value
		case "fn", "filename":
			m.Filename = value
		}
	}
	return nil
}

// splitBracketPairs splits a key-value bracket body on commas (a space
// after a comma is trimmed), while respecting single/double-quoted values.
// Pairs separated by spaces alone are not split.
func splitBracketPairs(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	trimmed := out[:0]
	for _, p := range out {
		if t := strings.TrimSpace(p); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return trimmed
}

// DependencyName extracts the package-name portion of a "depends" or
// "constrains" string by splitting on the first run of whitespace, e.g.
// "bar >=1.0" -> "bar". Used by the gateway's recursive discovery and the
// resolver's candidate lookup, both of which only need the name to decide
// what else to fetch or consider, not the full constraint.
func DependencyName(dep string) string {
	dep = strings.TrimSpace(dep)
	if i := strings.IndexAny(dep, " \t"); i >= 0 {
		return dep[:i]
	}
	return dep
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
