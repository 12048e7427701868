// Package remote adapts the Drive API managers to the synchronizer's Remote.
package remote

import (
	"context"
	"io"
	"time"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/files"
	"github.com/dl-alexandre/drivesync/internal/folders"
	"github.com/dl-alexandre/drivesync/internal/permissions"
	"github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// Drive is a sync.Remote backed by the Drive v3 API
type Drive struct {
	client      *api.Client
	files       *files.Manager
	folders     *folders.Manager
	permissions *permissions.Manager
}

var _ sync.Remote = (*Drive)(nil)

// NewDrive creates a Drive remote. pageSize bounds each listing request; 0
// keeps the folders manager default.
func NewDrive(client *api.Client, pageSize int) *Drive {
	d := &Drive{
		client:      client,
		files:       files.NewManager(client),
		folders:     folders.NewManager(client),
		permissions: permissions.NewManager(client),
	}
	if pageSize > 0 {
		d.folders.SetPageSize(pageSize)
	}
	return d
}

// Files exposes the underlying file manager
func (d *Drive) Files() *files.Manager { return d.files }

// Folders exposes the underlying folder manager
func (d *Drive) Folders() *folders.Manager { return d.folders }

// Permissions exposes the underlying permission manager
func (d *Drive) Permissions() *permissions.Manager { return d.permissions }

// Client returns the API client the remote was built on
func (d *Drive) Client() *api.Client { return d.client }

// ListChildren implements sync.Remote
func (d *Drive) ListChildren(ctx context.Context, folderID string) ([]sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeListOrSearch)
	children, err := d.folders.ListChildren(ctx, reqCtx, folderID)
	if err != nil {
		return nil, err
	}
	return Entries(children), nil
}

// GetMetadata implements sync.Remote
func (d *Drive) GetMetadata(ctx context.Context, id string) (*sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeGetByID)
	file, err := d.files.Get(ctx, reqCtx, id, files.DefaultFields)
	if err != nil {
		return nil, err
	}
	entry := Entry(file)
	return &entry, nil
}

// FindFoldersByName implements sync.Remote
func (d *Drive) FindFoldersByName(ctx context.Context, name string) ([]sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeListOrSearch)
	found, err := d.folders.FindByName(ctx, reqCtx, name, "")
	if err != nil {
		return nil, err
	}
	return Entries(found), nil
}

// CreateFolder implements sync.Remote
func (d *Drive) CreateFolder(ctx context.Context, name, parentID, description string) (*sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeMutation)
	folder, err := d.folders.Create(ctx, reqCtx, name, parentID, description)
	if err != nil {
		return nil, err
	}
	entry := Entry(folder)
	return &entry, nil
}

// Upload implements sync.Remote. A request with ExistingID replaces that
// file's content in place, otherwise a new file is created under ParentID.
func (d *Drive) Upload(ctx context.Context, req sync.UploadRequest) (*sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeMutation)

	var (
		file *types.DriveFile
		err  error
	)
	if req.ExistingID != "" {
		file, err = d.files.UpdateContent(ctx, reqCtx, req.ExistingID, req.Body, files.UpdateContentOptions{
			Size:     req.Size,
			Progress: req.Progress,
		})
	} else {
		file, err = d.files.Upload(ctx, reqCtx, req.Body, files.UploadOptions{
			ParentID: req.ParentID,
			Name:     req.Name,
			Size:     req.Size,
			Progress: req.Progress,
		})
	}
	if err != nil {
		return nil, err
	}
	entry := Entry(file)
	return &entry, nil
}

// Download implements sync.Remote
func (d *Drive) Download(ctx context.Context, id string, w io.Writer, size int64, progress types.ProgressFunc) (int64, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeDownloadOrExport)
	return d.files.Download(ctx, reqCtx, id, w, size, progress)
}

// SetPublicReadable implements sync.Remote
func (d *Drive) SetPublicReadable(ctx context.Context, id string) error {
	reqCtx := d.client.NewRequest(types.RequestTypePermissionOp)
	_, err := d.permissions.MakePublic(ctx, reqCtx, id)
	return err
}

// Delete permanently removes an item
func (d *Drive) Delete(ctx context.Context, id string) error {
	reqCtx := d.client.NewRequest(types.RequestTypeMutation)
	return d.files.Delete(ctx, reqCtx, id, true)
}

// Move re-parents an item under newParentID, removing every current parent
func (d *Drive) Move(ctx context.Context, id, newParentID string) (*sync.RemoteEntry, error) {
	reqCtx := d.client.NewRequest(types.RequestTypeMutation)
	file, err := d.files.Move(ctx, reqCtx, id, newParentID)
	if err != nil {
		return nil, err
	}
	entry := Entry(file)
	return &entry, nil
}

// Entry converts an API file into a synchronizer entry. Unparseable
// timestamps are left zero.
func Entry(f *types.DriveFile) sync.RemoteEntry {
	return sync.RemoteEntry{
		ID:           f.ID,
		Name:         f.Name,
		IsFolder:     f.MimeType == utils.MimeTypeFolder,
		Size:         f.Size,
		MimeType:     f.MimeType,
		Description:  f.Description,
		CreatedTime:  parseTime(f.CreatedTime),
		ModifiedTime: parseTime(f.ModifiedTime),
		WebViewLink:  f.WebViewLink,
	}
}

// Entries converts a slice of API files
func Entries(in []*types.DriveFile) []sync.RemoteEntry {
	out := make([]sync.RemoteEntry, 0, len(in))
	for _, f := range in {
		out = append(out, Entry(f))
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
