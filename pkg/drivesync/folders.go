package drivesync

import (
	"context"
	"path"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/resolver"
	"github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// ProgressFunc receives the local path of the file in flight and a percentage
type ProgressFunc = sync.ProgressFunc

// UploadFolderRequest mirrors a local directory into Drive
type UploadFolderRequest struct {
	// Path is the local directory; its base name names the remote folder
	Path string
	// ParentID defaults to the configured parent, normally "root"
	ParentID    string
	Description string
	// ExcludeExtensions defaults to the configured list when nil
	ExcludeExtensions []string
	// MakePublic defaults to the configured toggle when nil
	MakePublic *bool
	OnProgress ProgressFunc
}

// UploadFolder pushes a local tree into a same-named remote folder. Files
// whose remote counterpart has the same name and size are not re-sent.
func (c *Client) UploadFolder(ctx context.Context, req UploadFolderRequest) (*types.FolderResult, error) {
	return c.synchronizer(c.local).Push(ctx, c.pushOptions(c.localPath(req.Path), req))
}

// DownloadFolderRequest mirrors a remote folder to disk. The folder is
// identified by FolderID, else FolderURL, else FolderName.
type DownloadFolderRequest struct {
	FolderID   string
	FolderURL  string
	FolderName string
	// DestinationPath defaults to the configured download path
	DestinationPath string
	OnProgress      ProgressFunc
}

// DownloadFolder pulls a remote tree into DestinationPath/<folder name>
func (c *Client) DownloadFolder(ctx context.Context, req DownloadFolderRequest) (*types.FolderResult, error) {
	dest := req.DestinationPath
	if dest == "" {
		dest = c.cfg.DefaultDownloadPath
	}
	return c.synchronizer(c.local).Pull(ctx, sync.PullOptions{
		FolderID:        req.FolderID,
		FolderURL:       req.FolderURL,
		FolderName:      req.FolderName,
		DestinationPath: c.localPath(dest),
		OnProgress:      req.OnProgress,
	})
}

// MemoryFile is one in-memory file of a streamed folder upload. Name may
// contain "/" to place the file in a subfolder.
type MemoryFile struct {
	Name string
	Data []byte
}

// UploadFolderStreamRequest uploads in-memory files as a folder
type UploadFolderStreamRequest struct {
	FolderName        string
	ParentID          string
	Files             []MemoryFile
	Description       string
	ExcludeExtensions []string
	MakePublic        *bool
	OnProgress        ProgressFunc
}

// UploadFolderStream pushes in-memory files into <ParentID>/<FolderName>
// using the same skip and exclusion rules as UploadFolder. The parent must
// be an existing folder. Stats carry no local file paths.
func (c *Client) UploadFolderStream(ctx context.Context, req UploadFolderStreamRequest) (*types.FolderResult, error) {
	name := strings.TrimSpace(req.FolderName)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, utils.InvalidReferenceError("invalid folder name: %q", req.FolderName)
	}

	parentID := req.ParentID
	if parentID == "" {
		parentID = c.cfg.DefaultParentID
	}
	if err := c.requireFolder(ctx, parentID); err != nil {
		return &types.FolderResult{
			FolderName: name,
			Message:    "Error during folder upload: " + err.Error(),
			FileStats:  []*types.FileStat{},
		}, nil
	}

	fs := memfs.New()
	root := "/" + name
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	for _, f := range req.Files {
		rel := path.Clean("/" + strings.ReplaceAll(f.Name, `\`, "/"))
		if rel == "/" {
			return nil, utils.InvalidReferenceError("invalid file name: %q", f.Name)
		}
		if err := util.WriteFile(fs, root+rel, f.Data, 0o644); err != nil {
			return nil, utils.LocalIOError("buffer", f.Name, err)
		}
	}

	result, err := c.synchronizer(fs).Push(ctx, c.pushOptions(root, UploadFolderRequest{
		ParentID:          parentID,
		Description:       req.Description,
		ExcludeExtensions: req.ExcludeExtensions,
		MakePublic:        req.MakePublic,
		OnProgress:        req.OnProgress,
	}))
	if err != nil {
		return nil, err
	}
	result.SrcPath = ""
	for _, stat := range result.FileStats {
		stat.FilePath = ""
	}
	c.logger.Debug("Streamed folder upload finished",
		logging.F("folder", name),
		logging.F("files", len(req.Files)),
	)
	return result, nil
}

func (c *Client) pushOptions(localPath string, req UploadFolderRequest) sync.PushOptions {
	parentID := req.ParentID
	if parentID == "" {
		parentID = c.cfg.DefaultParentID
	}
	exclude := req.ExcludeExtensions
	if exclude == nil {
		exclude = c.cfg.ExcludeExtensions
	}
	return sync.PushOptions{
		LocalPath:         localPath,
		ParentID:          parentID,
		Description:       req.Description,
		ExcludeExtensions: exclude,
		MakePublic:        boolOr(req.MakePublic, c.cfg.MakePublic),
		OnProgress:        req.OnProgress,
	}
}

func (c *Client) requireFolder(ctx context.Context, id string) error {
	entry, err := c.remote.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if !entry.IsFolder {
		return utils.InvalidReferenceError("%s is not a folder", id)
	}
	return nil
}

// ResolveFolderPath returns the ID of the folder at a slash-separated path
// below the drive root, e.g. "Projects/2024". Where several folders share a
// name the oldest is used.
func (c *Client) ResolveFolderPath(ctx context.Context, folderPath string) (string, error) {
	result, err := c.paths.Resolve(ctx, c.request(types.RequestTypeListOrSearch), folderPath, resolver.ResolveOptions{
		RootID:   utils.RootFolderID,
		UseCache: true,
	})
	if err != nil {
		return "", err
	}
	if result.Ambiguous {
		c.logger.Warn("Several folders match a path segment; using the oldest",
			logging.F("path", folderPath),
			logging.F("folderId", result.FolderID),
		)
	}
	return result.FolderID, nil
}
