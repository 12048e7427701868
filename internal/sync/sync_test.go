package sync_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dl-alexandre/drivesync/internal/logging"
	dsync "github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/testing/mocks"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, fs billy.Filesystem, files map[string][]byte) {
	t.Helper()
	for p, data := range files {
		require.NoError(t, util.WriteFile(fs, p, data, 0o644))
	}
}

func newSynchronizer(remote dsync.Remote, fs billy.Filesystem) *dsync.Synchronizer {
	return dsync.New(remote, fs, logging.NewNoOpLogger())
}

func statNames(stats []*types.FileStat) []string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.FileName
	}
	sort.Strings(names)
	return names
}

func TestPush_ExcludesExtensions(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{
		"/src/a.txt":     bytes.Repeat([]byte("a"), 10),
		"/src/sub/b.png": bytes.Repeat([]byte("b"), 20),
	})
	remote := mocks.NewMockRemote()

	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{
		LocalPath:         "/src",
		ExcludeExtensions: []string{"png"},
	})
	require.NoError(t, err)

	require.True(t, result.Status, result.Message)
	assert.True(t, result.Updated)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.FileStats, 1)
	assert.Equal(t, "a.txt", result.FileStats[0].FileName)
	assert.Equal(t, int64(10), result.FileStats[0].FileSize)
	assert.Equal(t, "txt", result.FileStats[0].FileType)
	assert.Equal(t, "/src/a.txt", result.FileStats[0].FilePath)
	assert.Contains(t, result.FileStats[0].DownloadURL, "uc?export=download&id=")
	assert.Equal(t, "src", result.FolderName)
	assert.Equal(t, "https://drive.google.com/drive/folders/"+result.FolderID, result.FolderURL)
	assert.Equal(t, "Folder uploaded or updated successfully.", result.Message)
	assert.Equal(t, 1, remote.Calls("upload"))

	sub, ok := remote.Lookup(result.FolderID, "sub")
	require.True(t, ok, "subdirectory is mirrored even when all its files are excluded")
	assert.Empty(t, remote.Children(sub.ID))
}

func TestPush_IsIdempotent(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{
		"/tree/one.txt":         []byte("1"),
		"/tree/dir/two.txt":     []byte("22"),
		"/tree/dir/deep/3.json": []byte("{}"),
	})
	remote := mocks.NewMockRemote()
	s := newSynchronizer(remote, fs)
	opts := dsync.PushOptions{LocalPath: "/tree", MakePublic: true}

	first, err := s.Push(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, first.Status, first.Message)
	assert.True(t, first.Updated)
	assert.Equal(t, 3, first.FileCount)
	uploads := remote.Calls("upload")
	folders := remote.Calls("createFolder")

	second, err := s.Push(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, second.Status, second.Message)
	assert.False(t, second.Updated)
	assert.Equal(t, first.FileCount, second.FileCount)
	assert.Equal(t, first.FolderID, second.FolderID)
	assert.Equal(t, uploads, remote.Calls("upload"), "no uploads on the second run")
	assert.Equal(t, folders, remote.Calls("createFolder"), "no folders created on the second run")
	assert.Equal(t, len(first.FileStats), len(second.FileStats))
}

func TestPush_SkipsSymlinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target.bin"), bytes.Repeat([]byte("t"), 1000), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real", "inner.txt"), []byte("inner"), 0o644))
	if err := os.Symlink(filepath.Join(dir, "target.bin"), filepath.Join(dir, "link.bin")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "dirlink")))

	remote := mocks.NewMockRemote()
	s := newSynchronizer(remote, osfs.New("/"))
	opts := dsync.PushOptions{LocalPath: dir}

	first, err := s.Push(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, first.Status, first.Message)
	assert.True(t, first.Updated)
	assert.Equal(t, []string{"inner.txt", "target.bin"}, statNames(first.FileStats))
	for _, stat := range first.FileStats {
		if stat.FileName == "target.bin" {
			assert.Equal(t, int64(1000), stat.FileSize)
		}
	}
	assert.Equal(t, 2, remote.Calls("upload"))
	_, linked := remote.Lookup(first.FolderID, "dirlink")
	assert.False(t, linked, "directory symlink must not be mirrored")

	second, err := s.Push(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, second.Status, second.Message)
	assert.False(t, second.Updated)
	assert.Equal(t, 2, remote.Calls("upload"), "no uploads on the second run")
}

func TestPush_SkipRuleUsesSizeOnly(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{
		"/docs/same.txt":    []byte("local!"),
		"/docs/changed.txt": []byte("local content"),
	})
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("docs", mocks.RootID)
	same := remote.AddFile("same.txt", folder, []byte("REMOTE"))
	changed := remote.AddFile("changed.txt", folder, []byte("old"))

	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{LocalPath: "/docs"})
	require.NoError(t, err)
	require.True(t, result.Status, result.Message)

	assert.True(t, result.Updated)
	assert.Equal(t, folder, result.FolderID)
	assert.Equal(t, []byte("REMOTE"), remote.Content(same), "equal size is treated as in sync")
	assert.Equal(t, []byte("local content"), remote.Content(changed), "size mismatch overwrites in place")
	assert.Len(t, remote.Children(folder), 2, "overwrite must not create a second file")
	assert.Equal(t, 2, result.FileCount)
}

func TestPush_SameSizeOnlyIsNotUpdated(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{"/docs/same.txt": []byte("abc")})
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("docs", mocks.RootID)
	remote.AddFile("same.txt", folder, []byte("xyz"))

	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{LocalPath: "/docs"})
	require.NoError(t, err)
	assert.True(t, result.Status)
	assert.False(t, result.Updated)
	assert.Equal(t, 0, remote.Calls("upload"))
}

func TestPush_MakePublic(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{"/pub/sub/x.txt": []byte("x")})
	remote := mocks.NewMockRemote()

	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{
		LocalPath:   "/pub",
		MakePublic:  true,
		Description: "shared build output",
	})
	require.NoError(t, err)
	require.True(t, result.Status)

	assert.True(t, remote.IsPublic(result.FolderID))
	sub, _ := remote.Lookup(result.FolderID, "sub")
	assert.True(t, remote.IsPublic(sub.ID))
	file, _ := remote.Lookup(sub.ID, "x.txt")
	assert.True(t, remote.IsPublic(file.ID))
	assert.Equal(t, "shared build output", result.Description)
}

func TestPush_ReportsProgress(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{"/p/f.bin": []byte("data")})
	remote := mocks.NewMockRemote()

	seen := map[string]float64{}
	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{
		LocalPath:  "/p",
		OnProgress: func(path string, pct float64) { seen[path] = pct },
	})
	require.NoError(t, err)
	require.True(t, result.Status)
	assert.Equal(t, 100.0, seen["/p/f.bin"])
}

func TestPush_Errors(t *testing.T) {
	remote := mocks.NewMockRemote()
	s := newSynchronizer(remote, memfs.New())

	_, err := s.Push(context.Background(), dsync.PushOptions{})
	require.Error(t, err, "missing path is an error, not a result")
	assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))

	for _, root := range []string{"/", ".", "//"} {
		_, err = s.Push(context.Background(), dsync.PushOptions{LocalPath: root})
		require.Error(t, err, "root %q has no folder name", root)
		assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))
	}

	result, err := s.Push(context.Background(), dsync.PushOptions{LocalPath: "/absent"})
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "Error during folder upload: ")
	assert.Equal(t, 0, remote.Calls("createFolder"))
}

func TestPush_AbortsOnUploadFailureAndKeepsEarlierWork(t *testing.T) {
	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{
		"/up/a.txt": []byte("a"),
		"/up/b.txt": []byte("b"),
		"/up/c.txt": []byte("c"),
	})
	remote := mocks.NewMockRemote()
	uploaded := 0
	remote.UploadFunc = func(ctx context.Context, req dsync.UploadRequest) (*dsync.RemoteEntry, error) {
		if req.Name == "b.txt" {
			return nil, errors.New("quota exceeded")
		}
		uploaded++
		return &dsync.RemoteEntry{ID: "id-" + req.Name, Name: req.Name, Size: req.Size}, nil
	}

	result, err := newSynchronizer(remote, fs).Push(context.Background(), dsync.PushOptions{LocalPath: "/up"})
	require.NoError(t, err)

	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "quota exceeded")
	assert.Equal(t, 1, uploaded, "c.txt is never attempted")
	assert.True(t, result.Updated, "the folder and a.txt were created before the failure")
	assert.NotEmpty(t, result.FolderID)
}

func TestPushThenPull_RoundTrip(t *testing.T) {
	src := memfs.New()
	tree := map[string][]byte{
		"/proj/readme.md":          []byte("# hi"),
		"/proj/src/main.go":        []byte("package main"),
		"/proj/src/util/u.go":      []byte("package util\n"),
		"/proj/assets/logo.svg":    bytes.Repeat([]byte("<"), 300),
		"/proj/assets/empty.txt":   {},
		"/proj/assets/deep/a/b.md": []byte("b"),
	}
	writeTree(t, src, tree)
	remote := mocks.NewMockRemote()

	pushed, err := newSynchronizer(remote, src).Push(context.Background(), dsync.PushOptions{LocalPath: "/proj"})
	require.NoError(t, err)
	require.True(t, pushed.Status, pushed.Message)

	dst := memfs.New()
	pulled, err := newSynchronizer(remote, dst).Pull(context.Background(), dsync.PullOptions{
		FolderID:        pushed.FolderID,
		DestinationPath: "/out",
	})
	require.NoError(t, err)
	require.True(t, pulled.Status, pulled.Message)

	assert.Equal(t, "/out/proj", pulled.DestPath)
	assert.Equal(t, len(tree), pulled.FileCount)
	assert.Equal(t, statNames(pushed.FileStats), statNames(pulled.FileStats))
	for p, data := range tree {
		got, err := util.ReadFile(dst, "/out"+p)
		require.NoError(t, err, p)
		assert.Equal(t, data, got, p)
	}
}

func TestPull_DrainsPagination(t *testing.T) {
	remote := mocks.NewMockRemote()
	remote.PageSize = 3
	folder := remote.AddFolder("paged", mocks.RootID)
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt"} {
		remote.AddFile(name, folder, []byte(name))
	}

	result, err := newSynchronizer(remote, memfs.New()).Pull(context.Background(), dsync.PullOptions{
		FolderID:        folder,
		DestinationPath: "/dl",
	})
	require.NoError(t, err)
	require.True(t, result.Status, result.Message)

	assert.Equal(t, 5, result.FileCount)
	assert.Len(t, result.FileStats, 5)
	assert.Equal(t, 2, remote.Calls("listPage"))
}

func TestPull_SkipsMatchingLocalFiles(t *testing.T) {
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("cache", mocks.RootID)
	remote.AddFile("same.bin", folder, []byte("1234"))
	remote.AddFile("diff.bin", folder, []byte("new content"))

	fs := memfs.New()
	writeTree(t, fs, map[string][]byte{
		"/dl/cache/same.bin": []byte("abcd"),
		"/dl/cache/diff.bin": []byte("old"),
	})

	result, err := newSynchronizer(remote, fs).Pull(context.Background(), dsync.PullOptions{
		FolderID:        folder,
		DestinationPath: "/dl",
	})
	require.NoError(t, err)
	require.True(t, result.Status, result.Message)

	assert.True(t, result.Updated)
	assert.Equal(t, 1, remote.Calls("download"))
	same, _ := util.ReadFile(fs, "/dl/cache/same.bin")
	assert.Equal(t, []byte("abcd"), same)
	diff, _ := util.ReadFile(fs, "/dl/cache/diff.bin")
	assert.Equal(t, []byte("new content"), diff)
	assert.Equal(t, 2, result.FileCount)
}

func TestPull_ResolvesByNameAndURL(t *testing.T) {
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("named", mocks.RootID)
	remote.AddFile("n.txt", folder, []byte("n"))
	s := newSynchronizer(remote, memfs.New())

	byName, err := s.Pull(context.Background(), dsync.PullOptions{FolderName: "named", DestinationPath: "/a"})
	require.NoError(t, err)
	require.True(t, byName.Status, byName.Message)
	assert.Equal(t, folder, byName.FolderID)

	missing, err := s.Pull(context.Background(), dsync.PullOptions{FolderName: "nope", DestinationPath: "/a"})
	require.NoError(t, err)
	assert.False(t, missing.Status)
	assert.Contains(t, missing.Message, "Folder not found")

	badURL, err := s.Pull(context.Background(), dsync.PullOptions{FolderURL: "https://example.com/x", DestinationPath: "/a"})
	require.NoError(t, err)
	assert.False(t, badURL.Status)
	assert.Contains(t, badURL.Message, "Error during folder download: ")
}

func TestPull_MissingIdentifiers(t *testing.T) {
	s := newSynchronizer(mocks.NewMockRemote(), memfs.New())

	_, err := s.Pull(context.Background(), dsync.PullOptions{DestinationPath: "/a"})
	assert.Error(t, err)

	_, err = s.Pull(context.Background(), dsync.PullOptions{FolderID: "x"})
	assert.Error(t, err)
}

func TestPull_RejectsFiles(t *testing.T) {
	remote := mocks.NewMockRemote()
	file := remote.AddFile("f.txt", mocks.RootID, []byte("f"))

	result, err := newSynchronizer(remote, memfs.New()).Pull(context.Background(), dsync.PullOptions{FolderID: file, DestinationPath: "/a"})
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "is not a folder")
}

func TestPull_SkipsWorkspaceDocuments(t *testing.T) {
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("mixed", mocks.RootID)
	remote.AddDocument("Budget", folder)
	remote.AddFile("data.csv", folder, []byte("a,b"))

	result, err := newSynchronizer(remote, memfs.New()).Pull(context.Background(), dsync.PullOptions{FolderID: folder, DestinationPath: "/a"})
	require.NoError(t, err)
	require.True(t, result.Status)
	assert.Equal(t, []string{"data.csv"}, statNames(result.FileStats))
}

func TestPull_ListingFailureOnThirdCall(t *testing.T) {
	remote := mocks.NewMockRemote()
	top := remote.AddFolder("top", mocks.RootID)
	remote.AddFile("early.txt", top, []byte("early"))
	first := remote.AddFolder("a", top)
	remote.AddFile("a.txt", first, []byte("a"))
	second := remote.AddFolder("b", top)
	remote.AddFile("b.txt", second, []byte("b"))
	remote.FailListOnCall = 3
	remote.ListErr = errors.New("backend unavailable")

	fs := memfs.New()
	result, err := newSynchronizer(remote, fs).Pull(context.Background(), dsync.PullOptions{FolderID: top, DestinationPath: "/dl"})
	require.NoError(t, err)

	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "backend unavailable")
	_, statErr := fs.Stat("/dl/top/early.txt")
	assert.NoError(t, statErr, "files downloaded before the failure remain")
	_, statErr = fs.Stat("/dl/top/a/a.txt")
	assert.NoError(t, statErr)
	_, statErr = fs.Stat("/dl/top/b/b.txt")
	assert.Error(t, statErr)
}

func TestPull_ContextCancelled(t *testing.T) {
	remote := mocks.NewMockRemote()
	folder := remote.AddFolder("f", mocks.RootID)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newSynchronizer(remote, memfs.New()).Pull(ctx, dsync.PullOptions{FolderID: folder, DestinationPath: "/a"})
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "cancelled")
}
