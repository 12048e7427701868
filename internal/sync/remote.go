package sync

import (
	"context"
	"io"
	"time"

	"github.com/dl-alexandre/drivesync/internal/types"
)

// RemoteEntry is one child of a remote folder
type RemoteEntry struct {
	ID           string
	Name         string
	IsFolder     bool
	Size         int64 // zero for folders
	MimeType     string
	Description  string
	CreatedTime  time.Time
	ModifiedTime time.Time
	WebViewLink  string
}

// UploadRequest describes one file transfer to the remote side. A non-empty
// ExistingID replaces that file's content instead of creating a new file.
type UploadRequest struct {
	Name       string
	ParentID   string
	Body       io.Reader
	Size       int64
	ExistingID string
	Progress   types.ProgressFunc
}

// Remote is the storage the synchronizer reconciles against. ListChildren
// must return every non-trashed child, draining pagination.
type Remote interface {
	ListChildren(ctx context.Context, folderID string) ([]RemoteEntry, error)
	GetMetadata(ctx context.Context, id string) (*RemoteEntry, error)
	FindFoldersByName(ctx context.Context, name string) ([]RemoteEntry, error)
	CreateFolder(ctx context.Context, name, parentID, description string) (*RemoteEntry, error)
	Upload(ctx context.Context, req UploadRequest) (*RemoteEntry, error)
	Download(ctx context.Context, id string, w io.Writer, size int64, progress types.ProgressFunc) (int64, error)
	SetPublicReadable(ctx context.Context, id string) error
}
