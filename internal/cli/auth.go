package cli

import (
	"os"
	"path/filepath"

	"github.com/dl-alexandre/drivesync/internal/auth"
	"github.com/dl-alexandre/drivesync/internal/config"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Manage the service account keys used to reach Google Drive",
}

var authStoreKeyCmd = &cobra.Command{
	Use:   "store-key <key-file>",
	Short: "Store a service account key for a profile",
	Long: `Validate a service account JSON key and store it for the selected profile,
in the system keyring when available and in an encrypted file otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthStoreKey,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which key would be used",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored key for a profile",
	Args:  cobra.NoArgs,
	RunE:  runAuthDelete,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles with a stored key",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authEncryptedFile bool

func init() {
	authCmd.PersistentFlags().BoolVar(&authEncryptedFile, "encrypted-file", false, "Use encrypted file storage instead of the system keyring")

	authCmd.AddCommand(authStoreKeyCmd, authStatusCmd, authDeleteCmd, authListCmd)
	rootCmd.AddCommand(authCmd)
}

func getConfigDir() string {
	dir, err := config.GetConfigDir()
	if err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", config.AppName)
}

func authManager() *auth.Manager {
	mgr := auth.NewManagerWithOptions(getConfigDir(), auth.ManagerOptions{ForceEncryptedFile: authEncryptedFile})
	if warning := mgr.GetStorageWarning(); warning != "" {
		logger.Warn(warning)
	}
	return mgr
}

func runAuthStoreKey(cmd *cobra.Command, args []string) error {
	out := newOutput()
	profile := effectiveConfig().DefaultProfile

	info, err := authManager().StoreKeyFile(profile, args[0])
	if err != nil {
		return out.WriteFailure("auth.store-key", err)
	}

	out.Log("Stored key for %s in %s", info.ClientEmail, info.Backend)
	return out.WriteSuccess("auth.store-key", map[string]interface{}{
		"profile":        info.Profile,
		"clientEmail":    info.ClientEmail,
		"projectId":      info.ProjectID,
		"storageBackend": info.Backend,
	})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	out := newOutput()
	c := effectiveConfig()
	mgr := authManager()

	_, info, err := mgr.Resolve(c.DefaultProfile, c.ServiceAccountKeyFile, c.UseKeyring)
	if err != nil {
		exitCode = utils.ExitAuthRequired
		return out.WriteSuccess("auth.status", map[string]interface{}{
			"profile":        c.DefaultProfile,
			"authenticated":  false,
			"error":          err.Error(),
			"storageBackend": mgr.GetStorageBackend(),
		})
	}

	status := map[string]interface{}{
		"profile":        info.Profile,
		"authenticated":  true,
		"source":         info.Source,
		"clientEmail":    info.ClientEmail,
		"projectId":      info.ProjectID,
		"scopes":         c.Scopes,
		"storageBackend": mgr.GetStorageBackend(),
	}
	if info.KeyFile != "" {
		status["keyFile"] = info.KeyFile
	}
	return out.WriteSuccess("auth.status", status)
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	out := newOutput()
	profile := effectiveConfig().DefaultProfile

	if err := authManager().DeleteKey(profile); err != nil {
		return out.WriteFailure("auth.delete", err)
	}

	out.Log("Key removed for profile: %s", profile)
	return out.WriteSuccess("auth.delete", map[string]interface{}{
		"profile": profile,
		"status":  "deleted",
	})
}

func runAuthList(cmd *cobra.Command, args []string) error {
	out := newOutput()
	mgr := authManager()

	profiles, err := mgr.ListProfiles()
	if err != nil {
		return out.WriteError("auth.list", utils.NewCLIError(utils.ErrCodeUnknown,
			"Failed to list profiles: "+err.Error()).Build())
	}

	return out.WriteSuccess("auth.list", map[string]interface{}{
		"profiles":       profiles,
		"count":          len(profiles),
		"storageBackend": mgr.GetStorageBackend(),
	})
}
