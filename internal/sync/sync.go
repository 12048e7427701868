// Package sync mirrors a local directory tree and a remote folder tree in
// either direction. A transfer is skipped when an entry with the same name
// and byte size already exists on the receiving side.
package sync

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/sync/exclude"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/go-git/go-billy/v5"
)

// Result messages
const (
	pushSucceeded = "Folder uploaded or updated successfully."
	pullSucceeded = "Folder downloaded successfully."
	pushFailed    = "Error during folder upload: "
	pullFailed    = "Error during folder download: "
)

// ProgressFunc receives the local path of the file being transferred and a
// percentage in [0, 100]. It is called synchronously on every chunk.
type ProgressFunc func(path string, percent float64)

// Synchronizer walks a local tree and a remote tree together. One
// Synchronizer may serve concurrent runs on disjoint subtrees; a single run
// is strictly sequential.
type Synchronizer struct {
	remote Remote
	local  billy.Filesystem
	logger logging.Logger
}

// New creates a Synchronizer over remote and the local filesystem fs
func New(remote Remote, fs billy.Filesystem, logger logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Synchronizer{remote: remote, local: fs, logger: logger}
}

// frame is one pending folder pair on the walk stack
type frame struct {
	localPath string
	remoteID  string
	// fresh marks a remote folder created during this run; it has no children to list
	fresh bool
}

// statSet keeps FileStats in first-seen order, replacing on a repeated path
type statSet struct {
	order []*types.FileStat
	index map[string]int
}

func newStatSet() *statSet {
	return &statSet{index: make(map[string]int)}
}

func (s *statSet) add(stat *types.FileStat) {
	key := stat.FilePath
	if i, ok := s.index[key]; ok {
		s.order[i] = stat
		return
	}
	s.index[key] = len(s.order)
	s.order = append(s.order, stat)
}

func (s *statSet) list() []*types.FileStat {
	if s.order == nil {
		return []*types.FileStat{}
	}
	return s.order
}

func newFileStat(name, localPath string, size int64, entry *RemoteEntry) *types.FileStat {
	return &types.FileStat{
		FileName:    name,
		FilePath:    localPath,
		FileSize:    size,
		FileURL:     links.ViewURL(entry.ID, entry.WebViewLink),
		FileType:    exclude.Extension(name),
		DownloadURL: links.DirectDownloadURL(entry.ID),
	}
}

func (s *Synchronizer) logMatch(kind string, name string, parentID string, m Match) {
	if m.Kind == MatchFirstOfMany {
		s.logger.Warn("Multiple remote entries share a name; using the first listed",
			logging.F("kind", kind),
			logging.F("name", name),
			logging.F("parentId", parentID),
			logging.F("count", m.Count),
			logging.F("chosenId", m.Entry.ID),
		)
	}
}

func (s *Synchronizer) progressFor(fn ProgressFunc, path string) types.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(percent float64) { fn(path, percent) }
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// sortedDir returns the entries of a local directory ordered by name
func (s *Synchronizer) sortedDir(dir string) ([]entryInfo, error) {
	infos, err := s.local.ReadDir(dir)
	if err != nil {
		return nil, utils.LocalIOError("read directory", dir, err)
	}
	entries := make([]entryInfo, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryInfo{name: info.Name(), mode: info.Mode(), size: info.Size()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

// entryInfo describes a local directory entry without following symlinks
type entryInfo struct {
	name string
	mode os.FileMode
	size int64
}

func (e entryInfo) isDir() bool { return e.mode.IsDir() }

// transferable reports whether the entry is a regular file or a directory.
// Symlinks, devices, sockets and pipes are never mirrored.
func (e entryInfo) transferable() bool {
	return e.mode.IsDir() || e.mode.IsRegular()
}

// localName makes a remote name safe to use as a single local path element
func localName(remoteName string) (string, error) {
	name := strings.ReplaceAll(remoteName, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." || name == ".." {
		return "", utils.InvalidReferenceError("remote name %q cannot be used as a local file name", remoteName)
	}
	return name, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCancelled, "operation cancelled").Build(), err)
	}
	return nil
}
