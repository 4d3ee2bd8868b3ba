package matchspec

import (
	"strconv"
	"strings"

	"github.com/a-h/solvent/version"
)

// Record is the subset of repodata.PackageRecord a MatchSpec can be
// evaluated against. Matching is expressed against an interface, not a
// concrete repodata type, so matchspec has no dependency on repodata and
// can be tested in isolation.
type Record interface {
	RecordName() string
	RecordVersion() version.Version
	RecordBuild() string
	RecordBuildNumber() int64
	RecordChannel() string
	RecordSubdir() string
	RecordMD5() string
	RecordSHA256() string
	RecordFilename() string
}

// MatchSpec is a parsed Conda package selector. A nil/zero field means
// "unconstrained" for that attribute.
type MatchSpec struct {
	Name        string // "*" or empty means any name
	Version     *VersionSpec
	Build       *buildMatcher
	BuildNumber *int64
	Namespace   string
	Channel     string
	Subdir      string
	MD5         string
	SHA256      string
	Filename    string
}

// Matches reports whether r satisfies every constrained field of m.
func (m MatchSpec) Matches(r Record) bool {
	if m.Name != "" && m.Name != "*" && m.Name != r.RecordName() {
		return false
	}
	if m.Version != nil && !m.Version.Matches(r.RecordVersion()) {
		return false
	}
	if m.Build != nil && !m.Build.Matches(r.RecordBuild()) {
		return false
	}
	if m.BuildNumber != nil && *m.BuildNumber != r.RecordBuildNumber() {
		return false
	}
	if m.Channel != "" && m.Channel != "*" && m.Channel != r.RecordChannel() {
		return false
	}
	if m.Subdir != "" && m.Subdir != "*" && m.Subdir != r.RecordSubdir() {
		return false
	}
	if m.MD5 != "" && !strings.EqualFold(m.MD5, r.RecordMD5()) {
		return false
	}
	if m.SHA256 != "" && !strings.EqualFold(m.SHA256, r.RecordSHA256()) {
		return false
	}
	if m.Filename != "" && m.Filename != r.RecordFilename() {
		return false
	}
	return true
}

// String renders the canonical form:
// "(channel(/subdir)::)(namespace:)name(version)(build)[key=value,...]".
// Exact versions are rendered with a leading "==", fuzzy prefixes with "=",
// and anything else (an AND/OR tree) is pushed into the key-value brackets.
func (m MatchSpec) String() string {
	var b strings.Builder
	if m.Channel != "" {
		b.WriteString(m.Channel)
		if m.Subdir != "" {
			b.WriteByte('/')
			b.WriteString(m.Subdir)
		}
		b.WriteString("::")
	}
	if m.Namespace != "" {
		b.WriteString(m.Namespace)
		b.WriteByte(':')
	}
	if m.Name != "" {
		b.WriteString(m.Name)
	} else {
		b.WriteByte('*')
	}

	var bracket []string
	if m.Version != nil {
		if term := m.Version.term; term != nil {
			b.WriteByte(' ')
			b.WriteString(m.Version.String())
		} else {
			bracket = append(bracket, "version='"+m.Version.String()+"'")
		}
	}
	if m.Build != nil {
		b.WriteByte(' ')
		b.WriteString(m.Build.String())
	}
	if m.BuildNumber != nil {
		bracket = append(bracket, "build_number="+strconv.FormatInt(*m.BuildNumber, 10))
	}
	if m.MD5 != "" {
		bracket = append(bracket, "md5="+m.MD5)
	}
	if m.SHA256 != "" {
		bracket = append(bracket, "sha256="+m.SHA256)
	}
	if m.Filename != "" {
		bracket = append(bracket, "fn="+m.Filename)
	}
	if len(bracket) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(bracket, ","))
		b.WriteByte(']')
	}
	return b.String()
}
