package remote_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/remote"
	dsync "github.com/dl-alexandre/drivesync/internal/sync"
	drivetest "github.com/dl-alexandre/drivesync/internal/testing"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemote(t *testing.T, fake *drivetest.FakeDrive) *remote.Drive {
	t.Helper()
	return remote.NewDrive(drivetest.NewTestClient(t, fake, 2), 100)
}

func TestEntry(t *testing.T) {
	entry := remote.Entry(&types.DriveFile{
		ID:           "f1",
		Name:         "report.pdf",
		MimeType:     "application/pdf",
		Size:         42,
		CreatedTime:  "2024-03-01T10:00:00Z",
		ModifiedTime: "not a time",
		WebViewLink:  "https://drive.google.com/file/d/f1/view",
	})

	assert.Equal(t, "f1", entry.ID)
	assert.False(t, entry.IsFolder)
	assert.Equal(t, int64(42), entry.Size)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), entry.CreatedTime.UTC())
	assert.True(t, entry.ModifiedTime.IsZero())

	folder := remote.Entry(&types.DriveFile{ID: "d1", MimeType: utils.MimeTypeFolder})
	assert.True(t, folder.IsFolder)
}

func TestDrive_ListChildrenDrainsPages(t *testing.T) {
	fake := drivetest.NewFakeDrive(t)
	fake.PageSize = 2
	parent := fake.AddFolder("p", "root")
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		fake.AddFile(name, parent, []byte(name))
	}

	entries, err := newRemote(t, fake).ListChildren(context.Background(), parent)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Equal(t, 3, fake.Calls("list"))
}

func TestDrive_UploadCreatesThenReplaces(t *testing.T) {
	fake := drivetest.NewFakeDrive(t)
	r := newRemote(t, fake)
	ctx := context.Background()

	created, err := r.Upload(ctx, dsync.UploadRequest{
		Name:     "notes.txt",
		ParentID: "root",
		Body:     bytes.NewReader([]byte("first")),
		Size:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.Size)

	replaced, err := r.Upload(ctx, dsync.UploadRequest{
		Name:       "notes.txt",
		ExistingID: created.ID,
		Body:       bytes.NewReader([]byte("second version")),
		Size:       14,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)

	item, ok := fake.Item(created.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("second version"), item.Content)
	assert.Equal(t, 1, fake.Len())
}

func TestDrive_MoveAndDelete(t *testing.T) {
	fake := drivetest.NewFakeDrive(t)
	r := newRemote(t, fake)
	ctx := context.Background()
	from := fake.AddFolder("from", "root")
	to := fake.AddFolder("to", "root")
	file := fake.AddFile("f.txt", from, []byte("f"))

	_, err := r.Move(ctx, file, to)
	require.NoError(t, err)
	item, _ := fake.Item(file)
	assert.Equal(t, []string{to}, item.Parents)

	require.NoError(t, r.Delete(ctx, file))
	_, ok := fake.Item(file)
	assert.False(t, ok)

	err = r.Delete(ctx, file)
	assert.True(t, utils.IsNotFound(err))
}

func TestDrive_PushPullRoundTrip(t *testing.T) {
	fake := drivetest.NewFakeDrive(t)
	fake.PageSize = 2
	r := newRemote(t, fake)

	src := memfs.New()
	tree := map[string][]byte{
		"/site/index.html":     []byte("<html></html>"),
		"/site/css/main.css":   []byte("body{}"),
		"/site/css/reset.css":  []byte("*{}"),
		"/site/img/logo.png":   bytes.Repeat([]byte{0x89}, 64),
		"/site/js/app.js":      []byte("console.log(1)"),
		"/site/js/vendor/x.js": []byte("x"),
	}
	for p, data := range tree {
		require.NoError(t, util.WriteFile(src, p, data, 0o644))
	}

	pushed, err := dsync.New(r, src, logging.NewNoOpLogger()).Push(context.Background(), dsync.PushOptions{
		LocalPath:  "/site",
		MakePublic: true,
	})
	require.NoError(t, err)
	require.True(t, pushed.Status, pushed.Message)
	assert.Equal(t, 6, pushed.FileCount)
	// one permission per created folder (site, css, img, js, vendor) and per file
	assert.Equal(t, 11, fake.Calls("permission"))
	for _, stat := range pushed.FileStats {
		assert.Contains(t, stat.FileURL, "/view?usp=drivesdk")
	}

	dst := memfs.New()
	pulled, err := dsync.New(r, dst, logging.NewNoOpLogger()).Pull(context.Background(), dsync.PullOptions{
		FolderName:      "site",
		DestinationPath: "/restore",
	})
	require.NoError(t, err)
	require.True(t, pulled.Status, pulled.Message)
	assert.Equal(t, pushed.FolderID, pulled.FolderID)
	assert.Equal(t, 6, pulled.FileCount)
	for p, data := range tree {
		got, err := util.ReadFile(dst, "/restore"+p)
		require.NoError(t, err, p)
		assert.Equal(t, data, got, p)
	}

	again, err := dsync.New(r, src, logging.NewNoOpLogger()).Push(context.Background(), dsync.PushOptions{LocalPath: "/site"})
	require.NoError(t, err)
	assert.True(t, again.Status)
	assert.False(t, again.Updated)
	assert.Equal(t, 6, again.FileCount)
}

func TestDrive_PullReportsUnavailableRemote(t *testing.T) {
	fake := drivetest.NewFakeDrive(t)
	folder := fake.AddFolder("f", "root")
	fake.AddFile("x", folder, []byte("x"))
	fake.Fail(http.MethodGet, "/files?", http.StatusForbidden, 1)

	result, err := dsync.New(newRemote(t, fake), memfs.New(), nil).Pull(context.Background(), dsync.PullOptions{
		FolderID:        folder,
		DestinationPath: "/d",
	})
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.Contains(t, result.Message, "Error during folder download: ")
	assert.Empty(t, result.FileStats)
}
