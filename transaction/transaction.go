package transaction

import (
	"sort"

	"github.com/a-h/solvent/repodata"
)

// OperationKind identifies what a Transaction's Operation does.
type OperationKind int

const (
	OpRemove OperationKind = iota
	OpInstall
	OpChange
	OpReinstall
)

func (k OperationKind) String() string {
	switch k {
	case OpRemove:
		return "remove"
	case OpInstall:
		return "install"
	case OpChange:
		return "change"
	case OpReinstall:
		return "reinstall"
	default:
		return "unknown"
	}
}

// Operation is one step of a Transaction. Old is set for OpRemove,
// OpChange and OpReinstall; New is set for OpInstall, OpChange and
// OpReinstall.
type Operation struct {
	Kind OperationKind
	Old  *repodata.PrefixRecord
	New  *repodata.RepoDataRecord
}

// Transaction is the ordered diff between a prefix's current state and a
// desired set of records (§4.5).
type Transaction struct {
	Operations        []Operation
	Unchanged         []*repodata.PrefixRecord
	CurrentPythonInfo *PythonInfo
	DesiredPythonInfo *PythonInfo
	NeedsPythonRelink bool
}

// Build diffs current against desired, producing an ordered Transaction.
// reinstall and ignored are name sets; platform is currently unused by the
// diff itself (carried for callers that need it alongside the result, e.g.
// to label the prefix metadata written by the installer).
func Build(current []*repodata.PrefixRecord, desired []*repodata.RepoDataRecord, reinstall, ignored map[string]bool, platform string) *Transaction {
	currentLike := make([]recordLike, len(current))
	for i, r := range current {
		currentLike[i] = prefixRecordLike{r}
	}
	desiredLike := make([]recordLike, len(desired))
	for i, r := range desired {
		desiredLike[i] = repoDataRecordLike{r}
	}

	currentPython := findPython(currentLike)
	desiredPython := findPython(desiredLike)
	relink := needsPythonRelink(currentPython, desiredPython)

	currentByName := make(map[string]*repodata.PrefixRecord, len(current))
	for _, r := range current {
		currentByName[r.Name] = r
	}
	desiredByName := make(map[string]*repodata.RepoDataRecord, len(desired))
	for _, r := range desired {
		desiredByName[r.Name] = r
	}

	var removes []Operation
	for name, cur := range currentByName {
		if _, ok := desiredByName[name]; ok {
			continue
		}
		if ignored[name] {
			continue
		}
		removes = append(removes, Operation{Kind: OpRemove, Old: cur})
	}
	// LIFO removal order: reverse the (arbitrarily ordered, since
	// currentByName is a map) list isn't meaningful on its own, so removes
	// are ordered by the position of their name in current instead.
	removes = orderByCurrentPosition(removes, current)
	reverseOperations(removes)

	var (
		rest      []Operation
		unchanged []*repodata.PrefixRecord
	)
	for _, d := range desired {
		name := d.Name
		cur, hasCur := currentByName[name]

		if ignored[name] {
			if hasCur {
				unchanged = append(unchanged, cur)
			}
			continue
		}

		if hasCur && sameContent(cur, d) {
			switch {
			case relink && d.Noarch == repodata.NoarchPython:
				rest = append(rest, Operation{Kind: OpReinstall, Old: cur, New: d})
			case reinstall[name]:
				rest = append(rest, Operation{Kind: OpChange, Old: cur, New: d})
			default:
				unchanged = append(unchanged, cur)
			}
			continue
		}

		if hasCur {
			rest = append(rest, Operation{Kind: OpChange, Old: cur, New: d})
			continue
		}

		rest = append(rest, Operation{Kind: OpInstall, New: d})
	}

	return &Transaction{
		Operations:        append(removes, rest...),
		Unchanged:         unchanged,
		CurrentPythonInfo: currentPython,
		DesiredPythonInfo: desiredPython,
		NeedsPythonRelink: relink,
	}
}

func orderByCurrentPosition(ops []Operation, current []*repodata.PrefixRecord) []Operation {
	position := make(map[string]int, len(current))
	for i, r := range current {
		position[r.Name] = i
	}
	ordered := append([]Operation{}, ops...)
	sort.Slice(ordered, func(i, j int) bool {
		return position[ordered[i].Old.Name] < position[ordered[j].Old.Name]
	})
	return ordered
}

func reverseOperations(ops []Operation) {
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
}

// sameContent implements §4.5's identity rule: SHA-256 if both present,
// else MD5 if both present, else size+name+version+build.
func sameContent(old *repodata.PrefixRecord, new *repodata.RepoDataRecord) bool {
	if old.SHA256 != "" && new.SHA256 != "" {
		return old.SHA256 == new.SHA256
	}
	if old.MD5 != "" && new.MD5 != "" {
		return old.MD5 == new.MD5
	}
	return old.Size == new.Size &&
		old.Name == new.Name &&
		old.Version == new.Version &&
		old.Build == new.Build
}
