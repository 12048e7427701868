package cli

import (
	"strings"

	"github.com/dl-alexandre/drivesync/internal/resolver"
	"github.com/dl-alexandre/drivesync/pkg/drivesync"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-file>",
	Short: "Upload a file, replacing a same-named remote file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var downloadCmd = &cobra.Command{
	Use:   "download <file-id|url|name>",
	Short: "Download a file into a local directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var existsCmd = &cobra.Command{
	Use:   "exists <file-id|url|name>",
	Short: "Check whether a file exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runExists,
}

var renameCmd = &cobra.Command{
	Use:   "rename <file-id|url|name> <new-name>",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id|url>",
	Short: "Permanently delete a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var moveCmd = &cobra.Command{
	Use:   "move <file-id> <folder-id|folder-path>",
	Short: "Move a file into another folder",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var (
	uploadParentID    string
	uploadName        string
	uploadDescription string
	uploadPublic      bool

	downloadDest string
	moveFrom     string
	refByName    bool
)

func init() {
	uploadCmd.Flags().StringVar(&uploadParentID, "parent", "", "Folder ID or path to search for an existing file and to upload into")
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "Remote file name (defaults to the local base name)")
	uploadCmd.Flags().StringVar(&uploadDescription, "description", "", "File description")
	uploadCmd.Flags().BoolVar(&uploadPublic, "public", false, "Make the file readable by anyone with the link")

	downloadCmd.Flags().StringVar(&downloadDest, "dest", "", "Destination directory (defaults to the configured download path)")
	moveCmd.Flags().StringVar(&moveFrom, "from", "", "Only detach this parent instead of every current parent")

	for _, c := range []*cobra.Command{downloadCmd, existsCmd, renameCmd} {
		c.Flags().BoolVar(&refByName, "by-name", false, "Treat the reference as an exact file name")
	}

	rootCmd.AddCommand(uploadCmd, downloadCmd, existsCmd, renameCmd, deleteCmd, moveCmd)
}

// parseFileRef reads a positional reference as a URL, a name or an ID
func parseFileRef(arg string, byName bool) drivesync.FileRef {
	switch {
	case byName:
		return drivesync.FileRef{Name: arg}
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		return drivesync.FileRef{URL: arg}
	case strings.ContainsAny(arg, " ./"):
		return drivesync.FileRef{Name: arg}
	}
	return drivesync.FileRef{ID: arg}
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("upload", err)
	}

	parentID := uploadParentID
	if resolver.IsPath(parentID) {
		if parentID, err = client.ResolveFolderPath(ctx, parentID); err != nil {
			return out.WriteFailure("upload", err)
		}
	}

	req := drivesync.UploadFileRequest{
		Path:        args[0],
		ParentID:    parentID,
		Name:        uploadName,
		Description: uploadDescription,
		OnProgress:  out.FileProgress(args[0]),
	}
	if cmd.Flags().Changed("public") {
		req.MakePublic = &uploadPublic
	}
	result, err := client.UploadFile(ctx, req)
	if err != nil {
		return out.WriteFailure("upload", err)
	}
	return out.WriteResult("upload", result, result.Status)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("download", err)
	}

	result, err := client.DownloadFile(ctx, drivesync.DownloadFileRequest{
		File:            parseFileRef(args[0], refByName),
		DestinationPath: downloadDest,
		OnProgress:      out.FileProgress(args[0]),
	})
	if err != nil {
		return out.WriteFailure("download", err)
	}
	if result.Status {
		out.Log("Saved %s", result.LocalPath)
	}
	return out.WriteResult("download", result, result.Status)
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("exists", err)
	}

	result, err := client.FileExists(ctx, parseFileRef(args[0], refByName))
	if err != nil {
		return out.WriteFailure("exists", err)
	}
	return out.WriteResult("exists", result, result.Exists)
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("rename", err)
	}

	result, err := client.RenameFile(ctx, parseFileRef(args[0], refByName), args[1])
	if err != nil {
		return out.WriteFailure("rename", err)
	}
	return out.WriteResult("rename", result, result.Status)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("delete", err)
	}

	ref := parseFileRef(args[0], false)
	ref.Name = ""
	if ref.URL == "" {
		ref.ID = args[0]
	}
	result, err := client.DeleteFile(ctx, ref)
	if err != nil {
		return out.WriteFailure("delete", err)
	}
	return out.WriteResult("delete", result, result.Status)
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutput()

	client, err := getClient(ctx)
	if err != nil {
		return out.WriteFailure("move", err)
	}

	dest := args[1]
	if resolver.IsPath(dest) {
		if dest, err = client.ResolveFolderPath(ctx, dest); err != nil {
			return out.WriteFailure("move", err)
		}
	}
	result, err := client.MoveFile(ctx, args[0], moveFrom, dest)
	if err != nil {
		return out.WriteFailure("move", err)
	}
	return out.WriteResult("move", result, result.Status)
}
