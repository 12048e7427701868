package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// AppName names the config directory under the user config root
	AppName = "drivesync"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "DRIVESYNC_"
)

// Config holds application configuration
type Config struct {
	// DefaultProfile selects the keyring entry holding the service account key
	DefaultProfile string `json:"defaultProfile"`

	// ServiceAccountKeyFile is the path to a service account JSON key.
	// When empty the key stored in the keyring for DefaultProfile is used.
	ServiceAccountKeyFile string `json:"serviceAccountKeyFile,omitempty"`

	// UseKeyring allows falling back to the OS keyring for credentials
	UseKeyring bool `json:"useKeyring"`

	// Scopes requested for the service account token
	Scopes []string `json:"scopes,omitempty"`

	// DriveID scopes operations to a shared drive
	DriveID string `json:"driveId,omitempty"`

	// DefaultDownloadPath is used by single-file downloads without an explicit path
	DefaultDownloadPath string `json:"defaultDownloadPath,omitempty"`

	// DefaultParentID is the remote parent for pushes without an explicit parent
	DefaultParentID string `json:"defaultParentId"`

	// ExcludeExtensions lists file extensions skipped by folder pushes
	ExcludeExtensions []string `json:"excludeExtensions,omitempty"`

	// MakePublic grants anyone-with-link read access to pushed items
	MakePublic bool `json:"makePublic"`

	// PageSize is the Drive list page size
	PageSize int `json:"pageSize"`

	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RequestTimeout is the default request timeout in seconds
	RequestTimeout int `json:"requestTimeout"`

	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `json:"logLevel"`

	// LogFile, when set, receives JSON log lines
	LogFile string `json:"logFile,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile:      "default",
		UseKeyring:          true,
		Scopes:              []string{utils.ScopeFull},
		DefaultParentID:     utils.RootFolderID,
		MakePublic:          true,
		PageSize:            utils.DefaultPageSize,
		DefaultOutputFormat: types.OutputFormatJSON,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		RequestTimeout:      60,
		LogLevel:            "info",
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom is Load with an explicit config file path
func LoadFrom(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(configPath); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// loadFromEnv loads configuration from environment variables. The unprefixed
// SERVICE_ACCOUNT_KEY_FILE and DEFAULT_DOWNLOAD_PATH are honoured when the
// prefixed forms are absent.
func (c *Config) loadFromEnv() {
	if v := firstEnv(EnvPrefix+"SERVICE_ACCOUNT_KEY_FILE", utils.EnvServiceAccountKeyFile); v != "" {
		c.ServiceAccountKeyFile = v
	}
	if v := firstEnv(EnvPrefix+"DOWNLOAD_PATH", utils.EnvDefaultDownloadPath); v != "" {
		c.DefaultDownloadPath = v
	}
	if v := os.Getenv(EnvPrefix + "DEFAULT_PROFILE"); v != "" {
		c.DefaultProfile = v
	}
	if v := os.Getenv(EnvPrefix + "USE_KEYRING"); v != "" {
		c.UseKeyring = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "SCOPES"); v != "" {
		c.Scopes = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "DRIVE_ID"); v != "" {
		c.DriveID = v
	}
	if v := os.Getenv(EnvPrefix + "PARENT_ID"); v != "" {
		c.DefaultParentID = v
	}
	if v := os.Getenv(EnvPrefix + "EXCLUDE_EXTENSIONS"); v != "" {
		c.ExcludeExtensions = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "MAKE_PUBLIC"); v != "" {
		c.MakePublic = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = retries
		}
	}
	if v := os.Getenv(EnvPrefix + "RETRY_BASE_DELAY"); v != "" {
		if delay, err := strconv.Atoi(v); err == nil {
			c.RetryBaseDelay = delay
		}
	}
	if v := os.Getenv(EnvPrefix + "REQUEST_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.RequestTimeout = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	if c.PageSize < 1 || c.PageSize > utils.MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got: %d", utils.MaxPageSize, c.PageSize)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if c.RequestTimeout < 1 || c.RequestTimeout > 3600 {
		return fmt.Errorf("request timeout must be between 1 and 3600 seconds, got: %d", c.RequestTimeout)
	}

	if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if len(c.Scopes) == 0 {
		return fmt.Errorf("at least one OAuth scope is required")
	}

	if strings.TrimSpace(c.DefaultParentID) == "" {
		return fmt.Errorf("default parent ID must not be empty")
	}

	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetLogLevel returns the parsed log level, INFO when unparseable
func (c *Config) GetLogLevel() logging.LogLevel {
	level, _ := logging.ParseLogLevel(c.LogLevel)
	return level
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// splitList splits a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
