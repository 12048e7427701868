package cli

import (
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share <email>",
	Short: "Give a user read access to every item in the drive",
	Args:  cobra.ExactArgs(1),
	RunE:  runShare,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Permanently delete everything in the drive",
	Long: `Permanently delete every file and folder visible to the service account.
Deleted items are not moved to the trash. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	rootCmd.AddCommand(shareCmd, wipeCmd)
}

func runShare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("share", err)
	}

	summary, err := client.ShareDrive(ctx, args[0])
	if err != nil {
		return out.WriteFailure("share", err)
	}
	if summary.Failed > 0 {
		out.AddWarning(utils.ErrCodeBatchPartialFailure, "some items could not be shared", "warning")
	}
	return out.WriteResult("share", summary, summary.Status)
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	if !globalFlags.Yes {
		return out.WriteError("wipe", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"wipe deletes every item permanently; pass --yes to confirm").Build())
	}

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("wipe", err)
	}

	summary, err := client.WipeDrive(ctx)
	if err != nil {
		return out.WriteFailure("wipe", err)
	}
	if summary.Failed > 0 {
		out.AddWarning(utils.ErrCodeBatchPartialFailure, "some items could not be deleted", "warning")
	}
	return out.WriteResult("wipe", summary, summary.Status)
}
