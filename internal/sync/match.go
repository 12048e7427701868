package sync

// MatchKind tags how a by-name lookup resolved
type MatchKind int

const (
	// MatchNone means no entry had the name
	MatchNone MatchKind = iota
	// MatchUnique means exactly one entry had the name
	MatchUnique
	// MatchFirstOfMany means several entries shared the name and the first in
	// listing order was chosen. Listing order is not stable across runs.
	MatchFirstOfMany
)

func (k MatchKind) String() string {
	switch k {
	case MatchUnique:
		return "unique"
	case MatchFirstOfMany:
		return "first-of-many"
	default:
		return "none"
	}
}

// Match is the result of looking up a name among a folder's children
type Match struct {
	Kind  MatchKind
	Entry *RemoteEntry
	Count int
}

// Found reports whether an entry was selected
func (m Match) Found() bool {
	return m.Kind != MatchNone
}

// MatchFile looks up a non-folder entry by exact, case-sensitive name
func MatchFile(entries []RemoteEntry, name string) Match {
	return match(entries, name, false)
}

// MatchFolder looks up a folder entry by exact, case-sensitive name
func MatchFolder(entries []RemoteEntry, name string) Match {
	return match(entries, name, true)
}

func match(entries []RemoteEntry, name string, folder bool) Match {
	var result Match
	for i := range entries {
		if entries[i].Name != name || entries[i].IsFolder != folder {
			continue
		}
		if result.Count == 0 {
			result.Entry = &entries[i]
		}
		result.Count++
	}
	switch {
	case result.Count == 1:
		result.Kind = MatchUnique
	case result.Count > 1:
		result.Kind = MatchFirstOfMany
	}
	return result
}

// ShouldTransfer is the skip rule shared by push and pull: transfer iff the
// sizes differ. Content is never compared, so equal-sized files with
// different bytes are treated as already in sync.
func ShouldTransfer(localSize, remoteSize int64) bool {
	return localSize != remoteSize
}
