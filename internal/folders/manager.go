package folders

import (
	"context"
	"fmt"
	"sync"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderFields = "id,name,mimeType,size,description,createdTime,modifiedTime,parents,resourceKey,trashed,webViewLink,webContentLink"

// Manager handles folder operations
type Manager struct {
	client   *api.Client
	shaper   *api.RequestShaper
	pageSize int
}

// NewManager creates a new folder manager
func NewManager(client *api.Client) *Manager {
	return &Manager{
		client:   client,
		shaper:   api.NewRequestShaper(client),
		pageSize: utils.DefaultPageSize,
	}
}

// SetPageSize changes the page size used when draining listings
func (m *Manager) SetPageSize(n int) {
	if n > 0 && n <= utils.MaxPageSize {
		m.pageSize = n
	}
}

// Create creates a new folder
func (m *Manager) Create(ctx context.Context, reqCtx *types.RequestContext, name string, parentID string, description string) (*types.DriveFile, error) {
	if parentID != "" {
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)
	}

	metadata := &drive.File{
		Name:        name,
		MimeType:    utils.MimeTypeFolder,
		Description: description,
	}
	if parentID != "" {
		metadata.Parents = []string{parentID}
	}

	call := m.client.Service().Files.Create(metadata)
	call = m.shaper.ShapeFilesCreate(call, reqCtx)
	call = call.Fields(folderFields)

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	m.client.Logger().Debug("Created folder",
		logging.F("folderId", result.Id),
		logging.F("name", result.Name),
		logging.F("parentId", parentID),
	)
	return convertDriveFile(result), nil
}

// List lists one page of folder contents
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, folderID string, pageSize int, pageToken string) (*types.FileListResult, error) {
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, folderID)
	return m.listPage(ctx, reqCtx, folderID, pageSize, pageToken)
}

func (m *Manager) listPage(ctx context.Context, reqCtx *types.RequestContext, folderID string, pageSize int, pageToken string) (*types.FileListResult, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", links.EscapeQueryValue(folderID))

	call := m.client.Service().Files.List().Q(query)
	call = m.shaper.ShapeFilesList(call, reqCtx)
	call = call.Fields(googleapi.Field("nextPageToken,incompleteSearch,files(" + folderFields + ")"))

	if pageSize > 0 {
		call = call.PageSize(int64(pageSize))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

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

// ListChildren returns every non-trashed child of folderID, following
// continuation tokens until the listing is exhausted.
func (m *Manager) ListChildren(ctx context.Context, reqCtx *types.RequestContext, folderID string) ([]*types.DriveFile, error) {
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, folderID)

	var children []*types.DriveFile
	pageToken := ""
	for {
		page, err := m.listPage(ctx, reqCtx, folderID, m.pageSize, pageToken)
		if err != nil {
			return nil, err
		}
		children = append(children, page.Files...)
		if page.NextPageToken == "" {
			return children, nil
		}
		pageToken = page.NextPageToken
	}
}

// FindByName returns folders named exactly name. An empty parentID searches
// every folder visible to the caller.
func (m *Manager) FindByName(ctx context.Context, reqCtx *types.RequestContext, name string, parentID string) ([]*types.DriveFile, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		links.EscapeQueryValue(name), utils.MimeTypeFolder)
	if parentID != "" {
		query = fmt.Sprintf("'%s' in parents and %s", links.EscapeQueryValue(parentID), query)
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)
	}

	var found []*types.DriveFile
	pageToken := ""
	for {
		call := m.client.Service().Files.List().Q(query)
		call = m.shaper.ShapeFilesList(call, reqCtx)
		call = call.Fields(googleapi.Field("nextPageToken,files(" + folderFields + ")")).PageSize(int64(m.pageSize))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
			return call.Context(ctx).Do()
		})
		if err != nil {
			return nil, err
		}
		for _, f := range result.Files {
			if f.Name == name {
				found = append(found, convertDriveFile(f))
			}
		}
		if result.NextPageToken == "" {
			return found, nil
		}
		pageToken = result.NextPageToken
	}
}

// WipeResult counts the outcome of a recursive delete
type WipeResult struct {
	Deleted   int
	Failed    int
	FailedIDs []string
}

// WipeContents permanently deletes everything below folderID. Files in each
// folder are deleted concurrently, utils.BatchDeleteWidth at a time; subfolders
// are emptied depth-first and then deleted. Per-item failures are logged and
// counted, and do not stop the walk.
func (m *Manager) WipeContents(ctx context.Context, reqCtx *types.RequestContext, folderID string) (*WipeResult, error) {
	result := &WipeResult{}
	var mu sync.Mutex
	record := func(id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, id)
			m.client.Logger().Warn("Failed to delete item",
				logging.F("id", id),
				logging.F("error", err.Error()),
			)
			return
		}
		result.Deleted++
	}

	if err := m.wipe(ctx, reqCtx, folderID, record); err != nil {
		return result, err
	}
	return result, nil
}

func (m *Manager) wipe(ctx context.Context, reqCtx *types.RequestContext, folderID string, record func(string, error)) error {
	children, err := m.ListChildren(ctx, reqCtx, folderID)
	if err != nil {
		return err
	}

	var subfolders []*types.DriveFile
	var g errgroup.Group
	g.SetLimit(utils.BatchDeleteWidth)
	for _, child := range children {
		if child.MimeType == utils.MimeTypeFolder {
			subfolders = append(subfolders, child)
			continue
		}
		id := child.ID
		g.Go(func() error {
			record(id, m.deleteItem(ctx, reqCtx.TraceID, id))
			return nil
		})
	}
	_ = g.Wait()

	for _, sub := range subfolders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.wipe(ctx, reqCtx, sub.ID, record); err != nil {
			record(sub.ID, err)
			continue
		}
		record(sub.ID, m.deleteItem(ctx, reqCtx.TraceID, sub.ID))
	}
	return nil
}

// deleteItem uses its own request context so concurrent deletes do not share state
func (m *Manager) deleteItem(ctx context.Context, traceID string, id string) error {
	reqCtx := m.client.NewRequest(types.RequestTypeMutation)
	reqCtx.TraceID = traceID
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, id)

	call := m.client.Service().Files.Delete(id)
	call = m.shaper.ShapeFilesDelete(call, reqCtx)

	_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (struct{}, error) {
		return struct{}{}, call.Context(ctx).Do()
	})
	if err == nil {
		m.client.ResourceKeys().Invalidate(id)
	}
	return err
}

// Walk visits every item below rootID, folders before their contents, using an
// explicit stack. An error from visit is logged and the walk continues; listing
// errors abort it.
func (m *Manager) Walk(ctx context.Context, reqCtx *types.RequestContext, rootID string, visit func(item *types.DriveFile) error) (visited int, failed int, err error) {
	stack := []string{rootID}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return visited, failed, err
		}
		folderID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := m.ListChildren(ctx, reqCtx, folderID)
		if err != nil {
			return visited, failed, err
		}
		for _, child := range children {
			visited++
			if err := visit(child); err != nil {
				failed++
				m.client.Logger().Warn("Walk visit failed",
					logging.F("id", child.ID),
					logging.F("name", child.Name),
					logging.F("error", err.Error()),
				)
			}
			if child.MimeType == utils.MimeTypeFolder {
				stack = append(stack, child.ID)
			}
		}
	}
	return visited, failed, nil
}

func convertDriveFile(f *drive.File) *types.DriveFile {
	return &types.DriveFile{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		Description:    f.Description,
		CreatedTime:    f.CreatedTime,
		ModifiedTime:   f.ModifiedTime,
		Parents:        f.Parents,
		ResourceKey:    f.ResourceKey,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Trashed:        f.Trashed,
	}
}
