package sync

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/sync/exclude"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// PushOptions configures a local to remote mirror
type PushOptions struct {
	// LocalPath is the directory to mirror; its base name names the remote folder
	LocalPath string
	// ParentID is the remote folder receiving the mirror; "root" when empty
	ParentID string
	// Description is set on the top-level remote folder when it is created
	Description string
	// ExcludeExtensions lists extensions to skip, matched case-insensitively
	ExcludeExtensions []string
	// MakePublic grants anyone-with-link read access to created folders and uploaded files
	MakePublic bool
	OnProgress ProgressFunc
}

// Push mirrors opts.LocalPath into a same-named folder under opts.ParentID.
// Failures are reported in the result with Status false; only a missing
// LocalPath is returned as an error. Work completed before a failure stays.
func (s *Synchronizer) Push(ctx context.Context, opts PushOptions) (*types.FolderResult, error) {
	if strings.TrimSpace(opts.LocalPath) == "" {
		return nil, utils.InvalidReferenceError("no folder path provided for the folder to upload")
	}
	if opts.ParentID == "" {
		opts.ParentID = utils.RootFolderID
	}

	root := filepath.Clean(opts.LocalPath)
	folderName := filepath.Base(root)
	if isFilesystemRoot(root, folderName) {
		return nil, utils.InvalidReferenceError("%s cannot be mirrored: a filesystem root has no folder name", opts.LocalPath)
	}
	run := &pushRun{
		s:        s,
		opts:     opts,
		excluded: exclude.New(opts.ExcludeExtensions),
		stats:    newStatSet(),
	}
	result := &types.FolderResult{
		SrcPath:    opts.LocalPath,
		FolderName: folderName,
	}

	s.logger.Info("Folder push started",
		logging.F("localPath", root),
		logging.F("parentId", opts.ParentID),
		logging.F("excluded", run.excluded.Len()),
	)

	err := run.execute(ctx, root, result)
	result.Updated = run.updated
	result.FileStats = run.stats.list()
	result.FileCount = len(result.FileStats)
	if err != nil {
		result.Status = false
		result.Message = pushFailed + err.Error()
		s.logger.Error("Folder push failed",
			logging.F("localPath", root),
			logging.F("error", err.Error()),
			logging.F("kind", utils.KindOf(err).String()),
		)
		return result, nil
	}

	result.Status = true
	result.Message = pushSucceeded
	s.logger.Info("Folder push completed",
		logging.F("folderId", result.FolderID),
		logging.F("files", result.FileCount),
		logging.F("updated", result.Updated),
	)
	return result, nil
}

type pushRun struct {
	s        *Synchronizer
	opts     PushOptions
	excluded *exclude.Matcher
	stats    *statSet
	updated  bool
}

func (r *pushRun) execute(ctx context.Context, root string, result *types.FolderResult) error {
	info, err := r.s.local.Stat(root)
	if err != nil {
		return utils.LocalIOError("stat", root, err)
	}
	if !info.IsDir() {
		return utils.InvalidReferenceError("%s is not a directory", root)
	}

	siblings, err := r.s.remote.ListChildren(ctx, r.opts.ParentID)
	if err != nil {
		return err
	}
	top, fresh, err := r.resolveFolder(ctx, siblings, result.FolderName, r.opts.ParentID, r.opts.Description)
	if err != nil {
		return err
	}
	result.FolderID = top.ID
	result.FolderURL = links.FolderURL(top.ID)
	result.Description = top.Description
	result.CreatedTime = timePtr(top.CreatedTime)
	result.ModifiedTime = timePtr(top.ModifiedTime)

	stack := []frame{{localPath: root, remoteID: top.ID, fresh: fresh}}
	for len(stack) > 0 {
		if err := checkContext(ctx); err != nil {
			return err
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subdirs, err := r.pushFolder(ctx, current)
		if err != nil {
			return err
		}
		// Reverse so subdirectories are walked in name order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

// pushFolder transfers the files of one folder and returns its subfolder frames
func (r *pushRun) pushFolder(ctx context.Context, current frame) ([]frame, error) {
	entries, err := r.s.sortedDir(current.localPath)
	if err != nil {
		return nil, err
	}

	var children []RemoteEntry
	if !current.fresh {
		children, err = r.s.remote.ListChildren(ctx, current.remoteID)
		if err != nil {
			return nil, err
		}
	}

	var subdirs []frame
	for _, entry := range entries {
		if r.excluded.IsExcluded(entry.name) {
			r.s.logger.Debug("Skipping excluded entry", logging.F("name", entry.name))
			continue
		}
		localPath := r.s.local.Join(current.localPath, entry.name)
		if !entry.transferable() {
			r.s.logger.Debug("Skipping non-regular entry",
				logging.F("path", localPath),
				logging.F("mode", entry.mode.String()),
			)
			continue
		}

		if entry.isDir() {
			folder, fresh, err := r.resolveFolder(ctx, children, entry.name, current.remoteID, "")
			if err != nil {
				return nil, err
			}
			subdirs = append(subdirs, frame{localPath: localPath, remoteID: folder.ID, fresh: fresh})
			continue
		}

		if err := r.pushFile(ctx, children, current.remoteID, entry, localPath); err != nil {
			return nil, err
		}
	}
	return subdirs, nil
}

// resolveFolder reuses a same-named folder among siblings or creates one
func (r *pushRun) resolveFolder(ctx context.Context, siblings []RemoteEntry, name, parentID, description string) (*RemoteEntry, bool, error) {
	m := MatchFolder(siblings, name)
	r.s.logMatch("folder", name, parentID, m)
	if m.Found() {
		return m.Entry, false, nil
	}

	folder, err := r.s.remote.CreateFolder(ctx, name, parentID, description)
	if err != nil {
		return nil, false, err
	}
	r.updated = true
	if r.opts.MakePublic {
		if err := r.s.remote.SetPublicReadable(ctx, folder.ID); err != nil {
			return nil, false, err
		}
	}
	r.s.logger.Debug("Created remote folder",
		logging.F("name", name),
		logging.F("folderId", folder.ID),
	)
	return folder, true, nil
}

func (r *pushRun) pushFile(ctx context.Context, siblings []RemoteEntry, parentID string, entry entryInfo, localPath string) error {
	m := MatchFile(siblings, entry.name)
	r.s.logMatch("file", entry.name, parentID, m)

	if m.Found() && !ShouldTransfer(entry.size, m.Entry.Size) {
		r.s.logger.Debug("Skipping unchanged file",
			logging.F("path", localPath),
			logging.Size("size", entry.size),
		)
		r.stats.add(newFileStat(entry.name, localPath, entry.size, m.Entry))
		return nil
	}

	f, err := r.s.local.Open(localPath)
	if err != nil {
		return utils.LocalIOError("open", localPath, err)
	}
	defer f.Close()

	req := UploadRequest{
		Name:     entry.name,
		ParentID: parentID,
		Body:     f,
		Size:     entry.size,
		Progress: r.s.progressFor(r.opts.OnProgress, localPath),
	}
	if m.Found() {
		req.ExistingID = m.Entry.ID
	}

	uploaded, err := r.s.remote.Upload(ctx, req)
	if err != nil {
		return err
	}
	r.updated = true
	if r.opts.MakePublic {
		if err := r.s.remote.SetPublicReadable(ctx, uploaded.ID); err != nil {
			return err
		}
	}

	r.s.logger.Info("Uploaded file",
		logging.F("path", localPath),
		logging.F("fileId", uploaded.ID),
		logging.Size("size", entry.size),
		logging.F("replaced", m.Found()),
	)
	r.stats.add(newFileStat(entry.name, localPath, entry.size, uploaded))
	return nil
}

// isFilesystemRoot reports whether root names no folder of its own, such as
// "/", "." or a Windows volume root
func isFilesystemRoot(root, base string) bool {
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return true
	}
	vol := filepath.VolumeName(root)
	return vol != "" && (root == vol || root == vol+string(filepath.Separator))
}
