package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/config"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing drivesync configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the configuration after environment overrides",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Use 'config show' to see available keys",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return newOutput().WriteSuccess("config.show", cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	out := newOutput()

	updated := *cfg
	if err := setConfigValue(&updated, args[0], args[1]); err != nil {
		return out.WriteError("config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("key", args[0]).
			Build())
	}
	if err := updated.Save(); err != nil {
		return out.WriteError("config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	out.Log("Set %s = %s", args[0], args[1])
	return out.WriteSuccess("config.set", &updated)
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := newOutput()

	defaults := config.DefaultConfig()
	if err := defaults.Save(); err != nil {
		return out.WriteError("config.reset", utils.NewCLIError(utils.ErrCodeLocalIO, err.Error()).Build())
	}
	return out.WriteSuccess("config.reset", defaults)
}

// setConfigValue assigns value to the field named by key (case-insensitive)
func setConfigValue(c *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "defaultprofile":
		c.DefaultProfile = value
	case "serviceaccountkeyfile":
		c.ServiceAccountKeyFile = value
	case "usekeyring":
		return setBool(&c.UseKeyring, value)
	case "scopes":
		c.Scopes = splitCSV(value)
	case "driveid":
		c.DriveID = value
	case "defaultdownloadpath":
		c.DefaultDownloadPath = value
	case "defaultparentid":
		c.DefaultParentID = value
	case "excludeextensions":
		c.ExcludeExtensions = splitCSV(value)
	case "makepublic":
		return setBool(&c.MakePublic, value)
	case "pagesize":
		return setInt(&c.PageSize, value)
	case "defaultoutputformat":
		if value != string(types.OutputFormatJSON) && value != string(types.OutputFormatTable) {
			return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", value)
		}
		c.DefaultOutputFormat = types.OutputFormat(value)
	case "maxretries":
		return setInt(&c.MaxRetries, value)
	case "retrybasedelay":
		return setInt(&c.RetryBaseDelay, value)
	case "requesttimeout":
		return setInt(&c.RequestTimeout, value)
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setBool(dst *bool, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean: %s", value)
	}
	*dst = v
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid number: %s", value)
	}
	*dst = v
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
