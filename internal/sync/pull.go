package sync

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/links"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// PullOptions configures a remote to local mirror. The remote folder is
// identified by FolderID, else FolderURL, else FolderName, in that order.
type PullOptions struct {
	FolderID   string
	FolderURL  string
	FolderName string
	// DestinationPath receives a subdirectory named after the remote folder
	DestinationPath string
	OnProgress      ProgressFunc
}

// Pull mirrors a remote folder into DestinationPath/<folder name>. Failures
// are reported in the result with Status false; only a missing folder
// identifier or destination is returned as an error. Files written before a
// failure stay on disk.
func (s *Synchronizer) Pull(ctx context.Context, opts PullOptions) (*types.FolderResult, error) {
	if opts.FolderID == "" && opts.FolderURL == "" && opts.FolderName == "" {
		return nil, utils.InvalidReferenceError("no folder identifier provided")
	}
	if strings.TrimSpace(opts.DestinationPath) == "" {
		return nil, utils.InvalidReferenceError("no destination path provided for the folder download")
	}

	run := &pullRun{s: s, opts: opts, stats: newStatSet()}
	result := &types.FolderResult{}

	err := run.execute(ctx, result)
	result.Updated = run.updated
	result.FileStats = run.stats.list()
	result.FileCount = len(result.FileStats)
	if err != nil {
		result.Status = false
		result.Message = pullFailed + err.Error()
		s.logger.Error("Folder pull failed",
			logging.F("destination", opts.DestinationPath),
			logging.F("error", err.Error()),
			logging.F("kind", utils.KindOf(err).String()),
		)
		return result, nil
	}

	result.Status = true
	result.Message = pullSucceeded
	s.logger.Info("Folder pull completed",
		logging.F("folderId", result.FolderID),
		logging.F("files", result.FileCount),
		logging.F("updated", result.Updated),
	)
	return result, nil
}

type pullRun struct {
	s       *Synchronizer
	opts    PullOptions
	stats   *statSet
	updated bool
}

func (r *pullRun) execute(ctx context.Context, result *types.FolderResult) error {
	if err := r.s.local.MkdirAll(r.opts.DestinationPath, 0o755); err != nil {
		return utils.LocalIOError("create directory", r.opts.DestinationPath, err)
	}

	rootID, err := r.resolveRoot(ctx)
	if err != nil {
		return err
	}
	root, err := r.s.remote.GetMetadata(ctx, rootID)
	if err != nil {
		return err
	}
	if !root.IsFolder {
		return utils.InvalidReferenceError("%s is not a folder", rootID)
	}
	name, err := localName(root.Name)
	if err != nil {
		return err
	}

	localRoot := r.s.local.Join(r.opts.DestinationPath, name)
	result.FolderID = root.ID
	result.FolderURL = links.FolderURL(root.ID)
	result.FolderName = root.Name
	result.Description = root.Description
	result.DestPath = localRoot
	result.CreatedTime = timePtr(root.CreatedTime)
	result.ModifiedTime = timePtr(root.ModifiedTime)

	r.s.logger.Info("Folder pull started",
		logging.F("folderId", root.ID),
		logging.F("destination", localRoot),
	)

	stack := []frame{{localPath: localRoot, remoteID: root.ID}}
	for len(stack) > 0 {
		if err := checkContext(ctx); err != nil {
			return err
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subdirs, err := r.pullFolder(ctx, current)
		if err != nil {
			return err
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

func (r *pullRun) resolveRoot(ctx context.Context) (string, error) {
	switch {
	case r.opts.FolderID != "":
		return links.ResolveID(r.opts.FolderID, "")
	case r.opts.FolderURL != "":
		return links.ExtractFolderID(r.opts.FolderURL)
	}

	candidates, err := r.s.remote.FindFoldersByName(ctx, r.opts.FolderName)
	if err != nil {
		return "", err
	}
	m := MatchFolder(candidates, r.opts.FolderName)
	r.s.logMatch("folder", r.opts.FolderName, "", m)
	if !m.Found() {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound, "Folder not found").
			WithContext("folderName", r.opts.FolderName).
			Build())
	}
	return m.Entry.ID, nil
}

// pullFolder downloads the files of one remote folder and returns its subfolder frames
func (r *pullRun) pullFolder(ctx context.Context, current frame) ([]frame, error) {
	if err := r.s.local.MkdirAll(current.localPath, 0o755); err != nil {
		return nil, utils.LocalIOError("create directory", current.localPath, err)
	}

	children, err := r.s.remote.ListChildren(ctx, current.remoteID)
	if err != nil {
		return nil, err
	}

	var subdirs []frame
	for i := range children {
		child := &children[i]
		name, err := localName(child.Name)
		if err != nil {
			return nil, err
		}
		localPath := r.s.local.Join(current.localPath, name)

		if child.IsFolder {
			subdirs = append(subdirs, frame{localPath: localPath, remoteID: child.ID})
			continue
		}
		if utils.IsWorkspaceMimeType(child.MimeType) {
			r.s.logger.Debug("Skipping Google Workspace document",
				logging.F("name", child.Name),
				logging.F("mimeType", child.MimeType),
			)
			continue
		}

		if err := r.pullFile(ctx, child, name, localPath); err != nil {
			return nil, err
		}
	}
	return subdirs, nil
}

func (r *pullRun) pullFile(ctx context.Context, entry *RemoteEntry, name, localPath string) error {
	info, err := r.s.local.Stat(localPath)
	switch {
	case err == nil && info.IsDir():
		return utils.LocalIOError("write", localPath, errors.New("a directory exists at the destination"))
	case err == nil && !ShouldTransfer(info.Size(), entry.Size):
		r.s.logger.Debug("Skipping unchanged file",
			logging.F("path", localPath),
			logging.Size("size", entry.Size),
		)
		r.stats.add(newFileStat(name, localPath, entry.Size, entry))
		return nil
	case err != nil && !os.IsNotExist(err):
		return utils.LocalIOError("stat", localPath, err)
	}

	f, err := r.s.local.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return utils.LocalIOError("create", localPath, err)
	}
	_, err = r.s.remote.Download(ctx, entry.ID, f, entry.Size, r.s.progressFor(r.opts.OnProgress, localPath))
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = utils.LocalIOError("close", localPath, closeErr)
	}
	if err != nil {
		return err
	}
	r.updated = true

	r.s.logger.Info("Downloaded file",
		logging.F("path", localPath),
		logging.F("fileId", entry.ID),
		logging.Size("size", entry.Size),
	)
	r.stats.add(newFileStat(name, localPath, entry.Size, entry))
	return nil
}
