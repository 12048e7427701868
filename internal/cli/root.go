package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/drivesync/internal/config"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/dl-alexandre/drivesync/pkg/drivesync"
	"github.com/dl-alexandre/drivesync/pkg/version"
	"github.com/spf13/cobra"
)

var (
	globalFlags    types.GlobalFlags
	keyFile        string
	cfg            *config.Config
	logger         logging.Logger = logging.NewNoOpLogger()
	debugTransport *logging.DebugTransport
	exitCode       int
)

var rootCmd = &cobra.Command{
	Use:   "drivesync",
	Short: "drivesync - mirror folders and files with Google Drive",
	Long: `drivesync copies folder trees and single files between the local disk and
Google Drive using a service account. Files whose remote copy already has the
same name and size are not transferred again.

All commands support JSON output for automation and scripting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		if !cmd.Flags().Changed("output") && !globalFlags.JSON {
			globalFlags.OutputFormat = cfg.DefaultOutputFormat
		}
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		logFile := globalFlags.LogFile
		if logFile == "" {
			logFile = cfg.LogFile
		}
		logConfig := logging.LogConfig{
			Level:           cfg.GetLogLevel(),
			OutputFile:      logFile,
			EnableConsole:   !globalFlags.Quiet,
			EnableDebug:     globalFlags.Debug,
			RedactSensitive: true,
			EnableColor:     true,
			EnableTimestamp: true,
			MaxFileSize:     logging.DefaultLogConfig().MaxFileSize,
		}
		if globalFlags.Verbose {
			logConfig.Level = logging.DEBUG
		}
		if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
			logConfig.EnableConsole = false
		}

		logger, debugTransport, err = logging.NewDebugLoggerWithTransport(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version number of drivesync",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newOutput().WriteSuccess("version", version.Get())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Profile, "profile", "", "Profile whose stored service account key is used")
	rootCmd.PersistentFlags().StringVar(&keyFile, "key-file", "", "Service account JSON key file (overrides the stored key)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DriveID, "drive-id", "", "Shared Drive ID to operate in")
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Log every HTTP request")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Yes, "yes", "y", false, "Answer yes to all prompts")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if globalFlags.Config != "" {
		return config.LoadFrom(globalFlags.Config)
	}
	return config.Load()
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	return nil
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode = utils.ExitSuccess
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if exitCode == utils.ExitSuccess {
			exitCode = utils.ExitUnknown
		}
	}
	_ = logger.Close()
	return exitCode
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}

// effectiveConfig applies the global flags on top of the loaded configuration
func effectiveConfig() *config.Config {
	base := cfg
	if base == nil {
		base = config.DefaultConfig()
	}
	c := *base
	if globalFlags.Profile != "" {
		c.DefaultProfile = globalFlags.Profile
	}
	if keyFile != "" {
		c.ServiceAccountKeyFile = keyFile
	}
	if globalFlags.DriveID != "" {
		c.DriveID = globalFlags.DriveID
	}
	return &c
}

func getClient(ctx context.Context) (*drivesync.Client, error) {
	opts := []drivesync.Option{drivesync.WithLogger(logger)}
	if debugTransport != nil {
		dt := debugTransport
		opts = append(opts, drivesync.WithTransport(func(base http.RoundTripper) http.RoundTripper {
			dt.Base = base
			return dt
		}))
	}
	return drivesync.New(ctx, effectiveConfig(), opts...)
}
