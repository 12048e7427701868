package drivesync

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/files"
	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/remote"
	"github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// FileRef identifies a remote file by ID, else sharing URL, else exact name
type FileRef struct {
	ID   string
	URL  string
	Name string
}

func (r FileRef) empty() bool {
	return strings.TrimSpace(r.ID) == "" && strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.Name) == ""
}

var errFileNotFound = utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound, "File not found on Google Drive.").Build())

// resolve looks up the file a reference points to
func (c *Client) resolve(ctx context.Context, ref FileRef) (*types.DriveFile, error) {
	fm := c.remote.Files()
	if ref.ID != "" || ref.URL != "" {
		id, err := links.ResolveID(ref.ID, ref.URL)
		if err != nil {
			return nil, err
		}
		return fm.Get(ctx, c.request(types.RequestTypeGetByID), id, files.DefaultFields)
	}

	found, err := fm.FindByName(ctx, c.request(types.RequestTypeListOrSearch), ref.Name, files.FindOptions{FilesOnly: true})
	if err != nil {
		return nil, err
	}
	if file := c.pick(found, ref.Name); file != nil {
		return file, nil
	}
	return nil, errFileNotFound
}

// pick applies the name match rule to a lookup result; nil when nothing matches
func (c *Client) pick(found []*types.DriveFile, name string) *types.DriveFile {
	m := sync.MatchFile(remote.Entries(found), name)
	if !m.Found() {
		return nil
	}
	if m.Kind == sync.MatchFirstOfMany {
		c.logger.Warn("Multiple files share a name; using the first listed",
			logging.F("name", name),
			logging.F("count", m.Count),
			logging.F("chosenId", m.Entry.ID),
		)
	}
	for _, f := range found {
		if f.ID == m.Entry.ID {
			return f
		}
	}
	return nil
}

// UploadFileRequest uploads one local file
type UploadFileRequest struct {
	Path string
	// ParentID narrows the same-name lookup and receives new files; when
	// empty the lookup spans the whole drive and new files go to the
	// configured parent.
	ParentID string
	// Name defaults to the base name of Path
	Name        string
	Description string
	MakePublic  *bool
	OnProgress  types.ProgressFunc
}

// UploadFile uploads a local file. A file of the same name is updated in
// place; otherwise a new file is created.
func (c *Client) UploadFile(ctx context.Context, req UploadFileRequest) (*types.FileTransferResult, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, utils.InvalidReferenceError("no file path provided for the file to upload")
	}
	localPath := c.localPath(req.Path)
	name := req.Name
	if name == "" {
		name = filepath.Base(localPath)
	}

	result, err := c.uploadFile(ctx, localPath, name, req)
	if err != nil {
		c.logger.Error("File upload failed", logging.F("path", localPath), logging.F("error", err.Error()))
		return &types.FileTransferResult{FileName: name, Message: "Error during file upload: " + err.Error()}, nil
	}
	return result, nil
}

func (c *Client) uploadFile(ctx context.Context, localPath, name string, req UploadFileRequest) (*types.FileTransferResult, error) {
	info, err := c.local.Stat(localPath)
	if err != nil {
		return nil, utils.LocalIOError("stat", localPath, err)
	}
	if info.IsDir() {
		return nil, utils.InvalidReferenceError("%s is a directory", localPath)
	}
	f, err := c.local.Open(localPath)
	if err != nil {
		return nil, utils.LocalIOError("open", localPath, err)
	}
	defer f.Close()

	existing, err := c.findExisting(ctx, name, req.ParentID)
	if err != nil {
		return nil, err
	}
	uploaded, err := c.put(ctx, f, name, req.ParentID, req.Description, info.Size(), existing, req.OnProgress)
	if err != nil {
		return nil, err
	}
	if boolOr(req.MakePublic, c.cfg.MakePublic) {
		if err := c.remote.SetPublicReadable(ctx, uploaded.ID); err != nil {
			return nil, err
		}
	}

	msg := "File uploaded successfully."
	if existing != nil {
		msg = "File updated successfully."
	}
	return transferResult(uploaded, msg, existing != nil), nil
}

// UploadStreamRequest uploads a byte buffer as a file under ParentID
type UploadStreamRequest struct {
	Name        string
	ParentID    string
	Data        []byte
	Description string
	MakePublic  *bool
	OnProgress  types.ProgressFunc
}

// UploadStream uploads Data as Name. An existing file of the same name and
// size under the parent is left alone.
func (c *Client) UploadStream(ctx context.Context, req UploadStreamRequest) (*types.FileTransferResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, utils.InvalidReferenceError("no file name provided for the stream upload")
	}
	parentID := req.ParentID
	if parentID == "" {
		parentID = c.cfg.DefaultParentID
	}

	result, err := c.uploadStream(ctx, parentID, req)
	if err != nil {
		c.logger.Error("Stream upload failed", logging.F("name", req.Name), logging.F("error", err.Error()))
		return &types.FileTransferResult{FileName: req.Name, Message: "Error uploading file " + req.Name + ": " + err.Error()}, nil
	}
	return result, nil
}

func (c *Client) uploadStream(ctx context.Context, parentID string, req UploadStreamRequest) (*types.FileTransferResult, error) {
	existing, err := c.findExisting(ctx, req.Name, parentID)
	if err != nil {
		return nil, err
	}
	size := int64(len(req.Data))
	if existing != nil && !sync.ShouldTransfer(size, existing.Size) {
		result := transferResult(existing, "File already exists with the same size.", false)
		result.Skipped = true
		return result, nil
	}

	uploaded, err := c.put(ctx, bytes.NewReader(req.Data), req.Name, parentID, req.Description, size, existing, req.OnProgress)
	if err != nil {
		return nil, err
	}
	if boolOr(req.MakePublic, c.cfg.MakePublic) {
		if err := c.remote.SetPublicReadable(ctx, uploaded.ID); err != nil {
			return nil, err
		}
	}
	return transferResult(uploaded, "File uploaded successfully.", existing != nil), nil
}

// findExisting returns the first non-folder named name, under parentID when set
func (c *Client) findExisting(ctx context.Context, name, parentID string) (*types.DriveFile, error) {
	found, err := c.remote.Files().FindByName(ctx, c.request(types.RequestTypeListOrSearch), name, files.FindOptions{
		ParentID:  parentID,
		FilesOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return c.pick(found, name), nil
}

func (c *Client) put(ctx context.Context, body io.Reader, name, parentID, description string, size int64, existing *types.DriveFile, progress types.ProgressFunc) (*types.DriveFile, error) {
	fm := c.remote.Files()
	reqCtx := c.request(types.RequestTypeMutation)
	if existing != nil {
		return fm.UpdateContent(ctx, reqCtx, existing.ID, body, files.UpdateContentOptions{
			Description: description,
			Size:        size,
			Progress:    progress,
		})
	}
	if parentID == "" {
		parentID = c.cfg.DefaultParentID
	}
	return fm.Upload(ctx, reqCtx, body, files.UploadOptions{
		ParentID:    parentID,
		Name:        name,
		Description: description,
		Size:        size,
		Progress:    progress,
	})
}

func transferResult(f *types.DriveFile, msg string, updated bool) *types.FileTransferResult {
	return &types.FileTransferResult{
		Status:            true,
		Updated:           updated,
		Message:           msg,
		FileID:            f.ID,
		FileName:          f.Name,
		FileSize:          f.Size,
		DownloadURL:       links.ViewURL(f.ID, f.WebViewLink),
		DirectDownloadURL: links.DirectDownloadURL(f.ID),
	}
}

// DownloadFileRequest downloads one remote file into a local directory
type DownloadFileRequest struct {
	File FileRef
	// DestinationPath is a directory and defaults to the configured download path
	DestinationPath string
	OnProgress      types.ProgressFunc
}

// DownloadFile saves a remote file as DestinationPath/<file name>
func (c *Client) DownloadFile(ctx context.Context, req DownloadFileRequest) (*types.FileTransferResult, error) {
	if req.File.empty() {
		return nil, utils.InvalidReferenceError("either a file ID, file URL or file name must be provided")
	}
	dest := req.DestinationPath
	if dest == "" {
		dest = c.cfg.DefaultDownloadPath
	}
	if strings.TrimSpace(dest) == "" {
		return nil, utils.InvalidReferenceError("no download path provided and no default download path configured")
	}
	dest = c.localPath(dest)

	result, err := c.downloadFile(ctx, req, dest)
	if err != nil {
		c.logger.Error("File download failed", logging.F("destination", dest), logging.F("error", err.Error()))
		return &types.FileTransferResult{Message: "Error during file download: " + err.Error()}, nil
	}
	return result, nil
}

func (c *Client) downloadFile(ctx context.Context, req DownloadFileRequest, dest string) (*types.FileTransferResult, error) {
	file, err := c.resolve(ctx, req.File)
	if err != nil {
		return nil, err
	}
	if file.MimeType == utils.MimeTypeFolder {
		return nil, utils.InvalidReferenceError("%s is a folder; use a folder download", file.ID)
	}
	if utils.IsWorkspaceMimeType(file.MimeType) {
		return nil, utils.InvalidReferenceError("%s is a Google Workspace document and has no binary content", file.ID)
	}

	name := strings.NewReplacer("/", "_", `\`, "_").Replace(file.Name)
	if name == "" || name == "." || name == ".." {
		name = file.ID
	}
	if err := c.local.MkdirAll(dest, 0o755); err != nil {
		return nil, utils.LocalIOError("create directory", dest, err)
	}
	target := c.local.Join(dest, name)
	out, err := c.local.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, utils.LocalIOError("create", target, err)
	}
	written, err := c.remote.Download(ctx, file.ID, out, file.Size, req.OnProgress)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = utils.LocalIOError("close", target, closeErr)
	}
	if err != nil {
		return nil, err
	}

	result := transferResult(file, "File downloaded successfully.", false)
	result.FileSize = written
	result.LocalPath = target
	return result, nil
}

// StreamFile writes the content of a remote file to w and returns its metadata
func (c *Client) StreamFile(ctx context.Context, ref FileRef, w io.Writer, progress types.ProgressFunc) (*types.DriveFile, error) {
	if ref.empty() {
		return nil, utils.InvalidReferenceError("either a file ID, file URL or file name must be provided")
	}
	file, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := c.remote.Download(ctx, file.ID, w, file.Size, progress); err != nil {
		return nil, err
	}
	return file, nil
}

// ServeFile answers an HTTP request with the content of a remote file as an
// attachment. Lookup failures are answered with 400, 404 or 502.
func (c *Client) ServeFile(ctx context.Context, w http.ResponseWriter, ref FileRef, progress types.ProgressFunc) error {
	if ref.empty() {
		err := utils.InvalidReferenceError("either a file ID, file URL or file name must be provided")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	file, err := c.resolve(ctx, ref)
	if err != nil {
		http.Error(w, "Error during file download: "+err.Error(), httpStatus(err))
		return err
	}

	name := file.Name
	if name == "" {
		name = "download"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if file.MimeType != "" && !utils.IsWorkspaceMimeType(file.MimeType) {
		w.Header().Set("Content-Type", file.MimeType)
	}
	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	_, err = c.remote.Download(ctx, file.ID, w, file.Size, progress)
	return err
}

func httpStatus(err error) int {
	switch utils.KindOf(err) {
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindInvalidReference:
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// FileExists reports whether a reference resolves to a file. A missing file
// is not an error.
func (c *Client) FileExists(ctx context.Context, ref FileRef) (*types.FileExistsResult, error) {
	if ref.empty() {
		return nil, utils.InvalidReferenceError("either a file ID, file URL or file name must be provided")
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	file, err := c.resolve(ctx, ref)
	switch {
	case utils.IsNotFound(err):
		return &types.FileExistsResult{Message: "File does not exist on Google Drive."}, nil
	case err != nil:
		return &types.FileExistsResult{Message: "Error checking file existence: " + err.Error()}, nil
	}
	return &types.FileExistsResult{
		Exists:             true,
		FileID:             file.ID,
		FileName:           file.Name,
		FileSize:           file.Size,
		MimeType:           file.MimeType,
		ModifiedTime:       file.ModifiedTime,
		FileURL:            links.ViewURL(file.ID, file.WebViewLink),
		DirectDownloadLink: links.DirectDownloadURL(file.ID),
		Message:            "File exists on Google Drive.",
	}, nil
}

// RenameFile gives a remote file a new name
func (c *Client) RenameFile(ctx context.Context, ref FileRef, newName string) (*types.RenameResult, error) {
	if ref.empty() {
		return nil, utils.InvalidReferenceError("file ID, file URL, or file name must be provided")
	}
	if strings.TrimSpace(newName) == "" {
		return nil, utils.InvalidReferenceError("a new name must be provided")
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	file, err := c.resolve(ctx, ref)
	if err == nil {
		file, err = c.remote.Files().Rename(ctx, c.request(types.RequestTypeMutation), file.ID, newName)
	}
	if err != nil {
		return &types.RenameResult{Message: "Error renaming file: " + err.Error()}, nil
	}
	return &types.RenameResult{
		Status:       true,
		Message:      "File renamed successfully.",
		ID:           file.ID,
		Name:         file.Name,
		ModifiedTime: file.ModifiedTime,
		DownloadURL:  links.DirectDownloadURL(file.ID),
	}, nil
}

// DeleteFile permanently deletes a file identified by ID or URL
func (c *Client) DeleteFile(ctx context.Context, ref FileRef) (*types.OperationResult, error) {
	if strings.TrimSpace(ref.ID) == "" && strings.TrimSpace(ref.URL) == "" {
		return nil, utils.InvalidReferenceError("either a file ID or file URL must be provided")
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	id, err := links.ResolveID(ref.ID, ref.URL)
	if err == nil {
		err = c.remote.Delete(ctx, id)
	}
	if err != nil {
		return &types.OperationResult{ID: id, Message: "Error during file deletion: " + err.Error()}, nil
	}
	return &types.OperationResult{Status: true, ID: id, Message: "File deleted successfully."}, nil
}

// MoveFile re-parents a file. With fromParentID empty every current parent
// is replaced.
func (c *Client) MoveFile(ctx context.Context, fileID, fromParentID, toParentID string) (*types.OperationResult, error) {
	if strings.TrimSpace(fileID) == "" || strings.TrimSpace(toParentID) == "" {
		return nil, utils.InvalidReferenceError("a file ID and a destination folder ID must be provided")
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	err := c.requireFolder(ctx, toParentID)
	if err == nil {
		reqCtx := c.request(types.RequestTypeMutation)
		if fromParentID == "" {
			_, err = c.remote.Files().Move(ctx, reqCtx, fileID, toParentID)
		} else {
			_, err = c.remote.Files().MoveBetween(ctx, reqCtx, fileID, fromParentID, toParentID)
		}
	}
	if err != nil {
		return &types.OperationResult{ID: fileID, Message: "Error moving file: " + err.Error()}, nil
	}
	return &types.OperationResult{Status: true, ID: fileID, Message: "File moved successfully."}, nil
}

// IsNotFound reports whether err means the referenced item does not exist
func IsNotFound(err error) bool {
	return utils.IsNotFound(err)
}
