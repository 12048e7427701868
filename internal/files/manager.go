package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// DefaultFields is the field mask used for single-file responses
const DefaultFields = "id,name,mimeType,size,md5Checksum,description,createdTime,modifiedTime,parents,resourceKey,trashed,webViewLink,webContentLink,capabilities(canDownload,canEdit,canShare,canDelete,canTrash)"

// Manager handles file operations
type Manager struct {
	client *api.Client
	shaper *api.RequestShaper
}

// NewManager creates a new file manager
func NewManager(client *api.Client) *Manager {
	return &Manager{
		client: client,
		shaper: api.NewRequestShaper(client),
	}
}

// UploadOptions configures file upload
type UploadOptions struct {
	ParentID    string
	Name        string
	MimeType    string // detected from content when empty
	Description string
	Size        int64 // used for progress reporting; <= 0 disables it
	Progress    types.ProgressFunc
}

// UpdateContentOptions configures a content replacement
type UpdateContentOptions struct {
	Name        string
	MimeType    string
	Description string
	Size        int64
	Progress    types.ProgressFunc
}

// ListOptions configures file listing
type ListOptions struct {
	ParentID       string
	Query          string
	PageSize       int
	PageToken      string
	OrderBy        string
	IncludeTrashed bool
	Fields         string
}

// FindOptions narrows a by-name lookup
type FindOptions struct {
	ParentID    string // empty searches everywhere visible
	FoldersOnly bool
	FilesOnly   bool
	PageSize    int
}

// Upload creates a new file from body
func (m *Manager) Upload(ctx context.Context, reqCtx *types.RequestContext, body io.Reader, opts UploadOptions) (*types.DriveFile, error) {
	if opts.Name == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, "upload requires a file name").Build())
	}

	metadata := &drive.File{
		Name:        opts.Name,
		MimeType:    opts.MimeType,
		Description: opts.Description,
	}
	if opts.ParentID != "" {
		metadata.Parents = []string{opts.ParentID}
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, opts.ParentID)
	}

	replay := newReplayableBody(body, opts.Size, opts.Progress)
	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		media, contentType, err := replay.open(opts.MimeType)
		if err != nil {
			return nil, err
		}
		call := m.client.Service().Files.Create(metadata).
			Media(media, googleapi.ContentType(contentType), googleapi.ChunkSize(utils.UploadChunkSize))
		call = m.shaper.ShapeFilesCreate(call, reqCtx)
		call = call.Fields(DefaultFields).Context(ctx)
		return replay.record(call.Do())
	})
	if err != nil {
		return nil, err
	}

	m.client.ResourceKeys().UpdateFromAPIResponse(result.Id, result.ResourceKey)
	m.client.Logger().Debug("Uploaded file",
		logging.F("fileId", result.Id),
		logging.F("name", result.Name),
		logging.Size("size", result.Size),
	)
	return convertDriveFile(result), nil
}

// UpdateContent replaces the content of an existing file with body
func (m *Manager) UpdateContent(ctx context.Context, reqCtx *types.RequestContext, fileID string, body io.Reader, opts UpdateContentOptions) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	metadata := &drive.File{
		Name:        opts.Name,
		MimeType:    opts.MimeType,
		Description: opts.Description,
	}

	replay := newReplayableBody(body, opts.Size, opts.Progress)
	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		media, contentType, err := replay.open(opts.MimeType)
		if err != nil {
			return nil, err
		}
		call := m.client.Service().Files.Update(fileID, metadata).
			Media(media, googleapi.ContentType(contentType), googleapi.ChunkSize(utils.UploadChunkSize))
		call = m.shaper.ShapeFilesUpdate(call, reqCtx)
		call = call.Fields(DefaultFields).Context(ctx)
		return replay.record(call.Do())
	})
	if err != nil {
		return nil, err
	}

	m.client.ResourceKeys().UpdateFromAPIResponse(result.Id, result.ResourceKey)
	return convertDriveFile(result), nil
}

// Download streams the content of a binary file into w and returns the byte
// count. size is the expected length, used only for progress.
func (m *Manager) Download(ctx context.Context, reqCtx *types.RequestContext, fileID string, w io.Writer, size int64, progress types.ProgressFunc) (int64, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	resp, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*httpBody, error) {
		call := m.client.Service().Files.Get(fileID)
		call = m.shaper.ShapeFilesGet(call, reqCtx)
		httpResp, err := call.Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		return &httpBody{ReadCloser: httpResp.Body, length: httpResp.ContentLength}, nil
	})
	if err != nil {
		return 0, err
	}
	defer resp.Close()

	if size <= 0 {
		size = resp.length
	}
	n, err := io.Copy(&progressWriter{w: w, total: size, fn: progress}, resp)
	var werr *writeError
	if errors.As(err, &werr) {
		return n, utils.LocalIOError("write", "download destination", werr.err)
	}
	if err != nil {
		return n, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError,
			fmt.Sprintf("Download failed: %s", err)).
			WithContext("fileId", fileID).
			Build(), err)
	}
	if progress != nil && size <= 0 {
		progress(100)
	}
	return n, nil
}

type httpBody struct {
	io.ReadCloser
	length int64
}

// Get retrieves file metadata
func (m *Manager) Get(ctx context.Context, reqCtx *types.RequestContext, fileID string, fields string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)
	if fields == "" {
		fields = DefaultFields
	}

	call := m.client.Service().Files.Get(fileID)
	call = m.shaper.ShapeFilesGet(call, reqCtx)
	call = call.Fields(googleapi.Field(fields))

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	m.client.ResourceKeys().UpdateFromAPIResponse(result.Id, result.ResourceKey)
	return convertDriveFile(result), nil
}

// List lists one page of files
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, opts ListOptions) (*types.FileListResult, error) {
	call := m.client.Service().Files.List()

	var clauses []string
	if opts.ParentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", links.EscapeQueryValue(opts.ParentID)))
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, opts.ParentID)
	}
	if !opts.IncludeTrashed {
		clauses = append(clauses, "trashed = false")
	}
	if opts.Query != "" {
		clauses = append(clauses, opts.Query)
	}
	if len(clauses) > 0 {
		call = call.Q(strings.Join(clauses, " and "))
	}
	call = m.shaper.ShapeFilesList(call, reqCtx)

	if opts.PageSize > 0 {
		call = call.PageSize(int64(opts.PageSize))
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.OrderBy != "" {
		call = call.OrderBy(opts.OrderBy)
	}
	fields := opts.Fields
	if fields == "" {
		fields = DefaultFields
	}
	call = call.Fields(googleapi.Field("nextPageToken,incompleteSearch,files(" + fields + ")"))

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	files := make([]*types.DriveFile, len(result.Files))
	for i, f := range result.Files {
		files[i] = convertDriveFile(f)
		m.client.ResourceKeys().UpdateFromAPIResponse(f.Id, f.ResourceKey)
	}

	return &types.FileListResult{
		Files:            files,
		NextPageToken:    result.NextPageToken,
		IncompleteSearch: result.IncompleteSearch,
	}, nil
}

// ListAll lists all files by following pagination
func (m *Manager) ListAll(ctx context.Context, reqCtx *types.RequestContext, opts ListOptions) ([]*types.DriveFile, error) {
	var allFiles []*types.DriveFile
	pageToken := opts.PageToken

	for {
		opts.PageToken = pageToken
		result, err := m.List(ctx, reqCtx, opts)
		if err != nil {
			return allFiles, err
		}

		allFiles = append(allFiles, result.Files...)

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	return allFiles, nil
}

// FindByName returns every non-trashed item whose name equals name exactly,
// in listing order.
func (m *Manager) FindByName(ctx context.Context, reqCtx *types.RequestContext, name string, opts FindOptions) ([]*types.DriveFile, error) {
	query := fmt.Sprintf("name = '%s'", links.EscapeQueryValue(name))
	switch {
	case opts.FoldersOnly:
		query += fmt.Sprintf(" and mimeType = '%s'", utils.MimeTypeFolder)
	case opts.FilesOnly:
		query += fmt.Sprintf(" and mimeType != '%s'", utils.MimeTypeFolder)
	}

	found, err := m.ListAll(ctx, reqCtx, ListOptions{
		ParentID: opts.ParentID,
		Query:    query,
		PageSize: opts.PageSize,
	})
	if err != nil {
		return nil, err
	}

	// The query language is case-insensitive for some locales; keep exact matches only.
	exact := found[:0]
	for _, f := range found {
		if f.Name == name {
			exact = append(exact, f)
		}
	}
	return exact, nil
}

// Delete permanently deletes a file, or moves it to trash
func (m *Manager) Delete(ctx context.Context, reqCtx *types.RequestContext, fileID string, permanent bool) error {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	if permanent {
		call := m.client.Service().Files.Delete(fileID)
		call = m.shaper.ShapeFilesDelete(call, reqCtx)

		_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (interface{}, error) {
			return nil, call.Context(ctx).Do()
		})
		if err == nil {
			m.client.ResourceKeys().Invalidate(fileID)
		}
		return err
	}

	call := m.client.Service().Files.Update(fileID, &drive.File{Trashed: true})
	call = m.shaper.ShapeFilesUpdate(call, reqCtx)

	_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	return err
}

// Rename changes a file's name
func (m *Manager) Rename(ctx context.Context, reqCtx *types.RequestContext, fileID string, newName string) (*types.DriveFile, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, "new name must not be empty").Build())
	}
	return m.Update(ctx, reqCtx, fileID, &drive.File{Name: newName}, "")
}

// Move moves a file from its current parents to newParentID
func (m *Manager) Move(ctx context.Context, reqCtx *types.RequestContext, fileID string, newParentID string) (*types.DriveFile, error) {
	file, err := m.Get(ctx, reqCtx, fileID, "id,name,parents")
	if err != nil {
		return nil, err
	}
	return m.MoveBetween(ctx, reqCtx, fileID, strings.Join(file.Parents, ","), newParentID)
}

// MoveBetween removes fileID from fromParentIDs (comma separated, may be
// empty) and adds it to toParentID.
func (m *Manager) MoveBetween(ctx context.Context, reqCtx *types.RequestContext, fileID string, fromParentIDs string, toParentID string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, toParentID)

	call := m.client.Service().Files.Update(fileID, &drive.File{})
	call = m.shaper.ShapeFilesUpdate(call, reqCtx)
	call = call.AddParents(toParentID).Fields(DefaultFields)
	if fromParentIDs != "" {
		call = call.RemoveParents(fromParentIDs)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// Update updates file metadata
func (m *Manager) Update(ctx context.Context, reqCtx *types.RequestContext, fileID string, metadata *drive.File, fields string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)
	if fields == "" {
		fields = DefaultFields
	}

	call := m.client.Service().Files.Update(fileID, metadata)
	call = m.shaper.ShapeFilesUpdate(call, reqCtx)
	call = call.Fields(googleapi.Field(fields))

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	m.client.ResourceKeys().UpdateFromAPIResponse(result.Id, result.ResourceKey)
	return convertDriveFile(result), nil
}

// replayableBody hands the same upload content to every retry attempt. Bodies
// that cannot seek are only good for one attempt.
type replayableBody struct {
	body     io.Reader
	size     int64
	progress types.ProgressFunc
	attempts int
	lastErr  error
}

func newReplayableBody(body io.Reader, size int64, progress types.ProgressFunc) *replayableBody {
	if body == nil {
		body = bytes.NewReader(nil)
	}
	return &replayableBody{body: body, size: size, progress: progress}
}

func (b *replayableBody) open(mimeType string) (io.Reader, string, error) {
	b.attempts++
	if b.attempts > 1 {
		seeker, ok := b.body.(io.Seeker)
		if !ok {
			return nil, "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeRemoteUnavailable,
				fmt.Sprintf("upload failed and the content stream cannot be replayed: %v", b.lastErr)).Build())
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, "", utils.LocalIOError("rewind", "upload body", err)
		}
	}

	head := make([]byte, utils.MimeSniffBytes)
	n, err := io.ReadFull(b.body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", utils.LocalIOError("read", "upload body", err)
	}
	head = head[:n]

	if mimeType == "" {
		mimeType = mimetype.Detect(head).String()
	}
	reader := io.MultiReader(bytes.NewReader(head), b.body)
	if b.progress != nil && b.size > 0 {
		reader = &progressReader{r: reader, total: b.size, fn: b.progress}
	}
	return reader, mimeType, nil
}

func (b *replayableBody) record(f *drive.File, err error) (*drive.File, error) {
	b.lastErr = err
	return f, err
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    types.ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.fn(percent(p.read, p.total))
	}
	return n, err
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	fn      types.ProgressFunc
}

// writeError marks failures of the destination writer so they are not
// mistaken for transport errors.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func (p *progressWriter) Write(buf []byte) (int, error) {
	n, err := p.w.Write(buf)
	if err != nil {
		err = &writeError{err: err}
	}
	if n > 0 && p.fn != nil && p.total > 0 {
		p.written += int64(n)
		p.fn(percent(p.written, p.total))
	}
	return n, err
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(done) * 100 / float64(total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func convertDriveFile(f *drive.File) *types.DriveFile {
	file := &types.DriveFile{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		MD5Checksum:    f.Md5Checksum,
		Description:    f.Description,
		CreatedTime:    f.CreatedTime,
		ModifiedTime:   f.ModifiedTime,
		Parents:        f.Parents,
		ResourceKey:    f.ResourceKey,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Trashed:        f.Trashed,
	}

	if f.Capabilities != nil {
		file.Capabilities = &types.FileCapabilities{
			CanDownload: f.Capabilities.CanDownload,
			CanEdit:     f.Capabilities.CanEdit,
			CanShare:    f.Capabilities.CanShare,
			CanDelete:   f.Capabilities.CanDelete,
			CanTrash:    f.Capabilities.CanTrash,
		}
	}

	return file
}
