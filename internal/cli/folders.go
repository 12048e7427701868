package cli

import (
	"github.com/dl-alexandre/drivesync/internal/resolver"
	"github.com/dl-alexandre/drivesync/pkg/drivesync"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <local-folder>",
	Short: "Mirror a local folder into Drive",
	Long: `Mirror a local folder into a same-named Drive folder under --parent.
Subfolders are mirrored recursively. Files whose remote copy has the same
name and size are not uploaded again.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Mirror a Drive folder to disk",
	Long: `Mirror a Drive folder into <dest>/<folder name>. The folder is chosen by
--id, else --path, else --url, else --name. Local files with the same name and size are
not downloaded again.`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

var (
	pushParentID    string
	pushDescription string
	pushExclude     []string
	pushPublic      bool

	pullFolderID  string
	pullPath      string
	pullFolderURL string
	pullName      string
	pullDest      string
)

func init() {
	pushCmd.Flags().StringVar(&pushParentID, "parent", "", "Parent folder ID or path such as Projects/2024 (defaults to the configured parent)")
	pushCmd.Flags().StringVar(&pushDescription, "description", "", "Description set on the created folder")
	pushCmd.Flags().StringSliceVar(&pushExclude, "exclude", nil, "File extensions to skip, e.g. log,tmp")
	pushCmd.Flags().BoolVar(&pushPublic, "public", false, "Make uploaded items readable by anyone with the link")

	pullCmd.Flags().StringVar(&pullFolderID, "id", "", "Folder ID")
	pullCmd.Flags().StringVar(&pullPath, "path", "", "Folder path below the drive root, e.g. Projects/2024")
	pullCmd.Flags().StringVar(&pullFolderURL, "url", "", "Folder sharing URL")
	pullCmd.Flags().StringVar(&pullName, "name", "", "Exact folder name")
	pullCmd.Flags().StringVar(&pullDest, "dest", "", "Local destination directory")

	rootCmd.AddCommand(pushCmd, pullCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("push", err)
	}

	parentID := pushParentID
	if resolver.IsPath(parentID) {
		if parentID, err = client.ResolveFolderPath(ctx, parentID); err != nil {
			return out.WriteFailure("push", err)
		}
	}

	req := drivesync.UploadFolderRequest{
		Path:        args[0],
		ParentID:    parentID,
		Description: pushDescription,
		OnProgress:  out.FolderProgress(),
	}
	if cmd.Flags().Changed("exclude") {
		req.ExcludeExtensions = pushExclude
	}
	if cmd.Flags().Changed("public") {
		req.MakePublic = &pushPublic
	}

	result, err := client.UploadFolder(ctx, req)
	if err != nil {
		return out.WriteFailure("push", err)
	}
	if result.Status {
		out.Log("Pushed %d files to %s", result.FileCount, result.FolderURL)
	}
	return out.WriteResult("push", result, result.Status)
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("pull", err)
	}

	folderID := pullFolderID
	if folderID == "" && pullPath != "" {
		if folderID, err = client.ResolveFolderPath(ctx, pullPath); err != nil {
			return out.WriteFailure("pull", err)
		}
	}

	result, err := client.DownloadFolder(ctx, drivesync.DownloadFolderRequest{
		FolderID:        folderID,
		FolderURL:       pullFolderURL,
		FolderName:      pullName,
		DestinationPath: pullDest,
		OnProgress:      out.FolderProgress(),
	})
	if err != nil {
		return out.WriteFailure("pull", err)
	}
	if result.Status {
		out.Log("Pulled %d files into %s", result.FileCount, result.DestPath)
	}
	return out.WriteResult("pull", result, result.Status)
}
