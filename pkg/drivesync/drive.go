package drivesync

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/permissions"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// ShareDrive grants email read access to every item in the drive, folders
// before their contents. Items that cannot be shared are logged and counted.
func (c *Client) ShareDrive(ctx context.Context, email string) (*types.TreeSummary, error) {
	if err := permissions.ValidateEmail(email); err != nil {
		return nil, err
	}

	pm := c.remote.Permissions()
	var failedIDs []string
	visited, failed, err := c.remote.Folders().Walk(ctx, c.request(types.RequestTypeListOrSearch), utils.RootFolderID,
		func(item *types.DriveFile) error {
			_, err := pm.ShareWithUser(ctx, c.request(types.RequestTypePermissionOp), item.ID, email)
			if err != nil {
				failedIDs = append(failedIDs, item.ID)
			}
			return err
		})

	summary := &types.TreeSummary{
		Succeeded: visited - failed,
		Failed:    failed,
		FailedIDs: failedIDs,
	}
	if err != nil {
		summary.Message = "Error sharing drive: " + err.Error()
		return summary, nil
	}
	summary.Status = true
	summary.Message = fmt.Sprintf("Drive shared with %s.", email)
	c.logger.Info("Drive shared",
		logging.F("email", email),
		logging.F("succeeded", summary.Succeeded),
		logging.F("failed", summary.Failed),
	)
	return summary, nil
}

// WipeDrive permanently deletes everything in the drive. Files are deleted
// ten at a time; folders are emptied depth-first and then removed. Items
// that cannot be deleted are logged and counted.
func (c *Client) WipeDrive(ctx context.Context) (*types.TreeSummary, error) {
	result, err := c.remote.Folders().WipeContents(ctx, c.request(types.RequestTypeMutation), utils.RootFolderID)

	summary := &types.TreeSummary{
		Succeeded: result.Deleted,
		Failed:    result.Failed,
		FailedIDs: result.FailedIDs,
	}
	if err != nil {
		summary.Message = "Error wiping drive: " + err.Error()
		return summary, nil
	}
	summary.Status = true
	summary.Message = "Drive contents deleted."
	c.logger.Info("Drive wiped",
		logging.F("deleted", summary.Succeeded),
		logging.F("failed", summary.Failed),
	)
	return summary, nil
}
