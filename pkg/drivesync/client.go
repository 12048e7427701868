// Package drivesync is a Google Drive helper: folder mirroring in both
// directions plus single-file upload, download, lookup and housekeeping,
// authenticated with a service account.
package drivesync

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/auth"
	"github.com/dl-alexandre/drivesync/internal/config"
	"github.com/dl-alexandre/drivesync/internal/logging"
	"github.com/dl-alexandre/drivesync/internal/remote"
	"github.com/dl-alexandre/drivesync/internal/resolver"
	"github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"google.golang.org/api/drive/v3"
)

// Client is the entry point for every operation. It is safe for concurrent
// use; each call builds its own request state.
type Client struct {
	cfg    *config.Config
	api    *api.Client
	remote *remote.Drive
	paths  *resolver.PathResolver
	local  billy.Filesystem
	// absPaths is set when local is the host filesystem rooted at "/"
	absPaths bool
	logger   logging.Logger
}

const pathCacheTTL = 5 * time.Minute

type options struct {
	logger    logging.Logger
	local     billy.Filesystem
	authMgr   *auth.Manager
	transport func(http.RoundTripper) http.RoundTripper
}

// Option customizes a Client
type Option func(*options)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFilesystem replaces the host filesystem used for local paths
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) { o.local = fs }
}

// WithAuthManager sets the key store consulted by New
func WithAuthManager(m *auth.Manager) Option {
	return func(o *options) { o.authMgr = m }
}

// WithTransport wraps the authenticated HTTP transport built by New
func WithTransport(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(o *options) { o.transport = wrap }
}

// New authenticates with the service account key named by cfg (key file
// first, then the key stored for cfg.DefaultProfile) and returns a Client.
// It fails when no usable key is found.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := applyOptions(opts)

	mgr := o.authMgr
	if mgr == nil {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, err
		}
		mgr = auth.NewManager(dir)
	}

	svc, info, err := mgr.DriveService(ctx, cfg.DefaultProfile, cfg.ServiceAccountKeyFile, cfg.UseKeyring, auth.ServiceOptions{
		Scopes:    cfg.Scopes,
		Transport: o.transport,
	})
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Authenticated with service account",
		logging.F("clientEmail", info.ClientEmail),
		logging.F("source", info.Source),
	)
	return newClient(svc, cfg, o), nil
}

// NewWithService returns a Client over an already authenticated service
func NewWithService(svc *drive.Service, cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return newClient(svc, cfg, applyOptions(opts))
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNoOpLogger()
	}
	return o
}

func newClient(svc *drive.Service, cfg *config.Config, o *options) *Client {
	apiClient := api.NewClient(svc, cfg.MaxRetries, cfg.RetryBaseDelay, o.logger,
		api.WithProfile(cfg.DefaultProfile),
		api.WithDriveID(cfg.DriveID),
	)
	drv := remote.NewDrive(apiClient, cfg.PageSize)
	c := &Client{
		cfg:    cfg,
		api:    apiClient,
		remote: drv,
		paths:  resolver.NewPathResolver(drv.Folders(), pathCacheTTL),
		local:  o.local,
		logger: o.logger,
	}
	if c.local == nil {
		c.local = osfs.New("/")
		c.absPaths = true
	}
	return c
}

// Config returns the configuration the client was built with
func (c *Client) Config() *config.Config {
	return c.cfg
}

func (c *Client) synchronizer(fs billy.Filesystem) *sync.Synchronizer {
	return sync.New(c.remote, fs, c.logger)
}

// localPath makes p usable with the client's filesystem
func (c *Client) localPath(p string) string {
	if !c.absPaths || p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// opContext bounds a single metadata call by the configured request timeout
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.GetRequestTimeout())
}

func (c *Client) request(rt types.RequestType) *types.RequestContext {
	return c.api.NewRequest(rt)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
