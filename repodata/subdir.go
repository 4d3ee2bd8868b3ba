package repodata

// Channel is a base URL plus a display name.
type Channel struct {
	BaseURL string
	Name    string
}

// Subdir is a (channel, platform) pair owning an index from package name to
// the sequence of RepoDataRecord built for that name.
type Subdir struct {
	Channel  Channel
	Platform string
	byName   map[string][]*RepoDataRecord
}

// NewSubdir returns an empty Subdir for channel/platform.
func NewSubdir(channel Channel, platform string) *Subdir {
	return &Subdir{Channel: channel, Platform: platform, byName: make(map[string][]*RepoDataRecord)}
}

// Add indexes a record under its package name.
func (s *Subdir) Add(r *RepoDataRecord) {
	s.byName[r.Name] = append(s.byName[r.Name], r)
}

// RecordsFor returns every record known for name, or nil if none.
func (s *Subdir) RecordsFor(name string) []*RepoDataRecord {
	return s.byName[name]
}

// Names returns every package name the subdir has at least one record for.
func (s *Subdir) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}

// Len reports the total number of records across all names.
func (s *Subdir) Len() (n int) {
	for _, records := range s.byName {
		n += len(records)
	}
	return n
}
