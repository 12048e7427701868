// Package permissions grants access to Drive files and folders: public
// anyone-with-link reads and per-user shares.
package permissions

import (
	"context"
	"net/mail"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/api"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
	"google.golang.org/api/drive/v3"
)

// Permission types and roles used by this module
const (
	TypeUser   = "user"
	TypeAnyone = "anyone"
	RoleReader = "reader"
)

// Manager handles permission operations
type Manager struct {
	client *api.Client
	shaper *api.RequestShaper
}

// NewManager creates a new permission manager
func NewManager(client *api.Client) *Manager {
	return &Manager{
		client: client,
		shaper: api.NewRequestShaper(client),
	}
}

// CreateOptions configures permission creation.
//
// Type is "user" (requires EmailAddress) or "anyone". Role is a Drive role
// such as "reader".
type CreateOptions struct {
	Type                  string
	Role                  string
	EmailAddress          string
	SendNotificationEmail bool
	AllowFileDiscovery    bool
}

// Create adds a permission to a file or folder
func (m *Manager) Create(ctx context.Context, reqCtx *types.RequestContext, fileID string, opts CreateOptions) (*types.Permission, error) {
	if err := validateCreate(opts); err != nil {
		return nil, err
	}
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	perm := &drive.Permission{
		Type:         opts.Type,
		Role:         opts.Role,
		EmailAddress: opts.EmailAddress,
	}
	if opts.Type == TypeAnyone {
		perm.AllowFileDiscovery = opts.AllowFileDiscovery
	}

	call := m.client.Service().Permissions.Create(fileID, perm)
	call = m.shaper.ShapePermissionsCreate(call, reqCtx)
	call = call.Fields("id,type,role,emailAddress,domain,displayName")
	if opts.Type == TypeUser {
		call = call.SendNotificationEmail(opts.SendNotificationEmail)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.Permission, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertPermission(result), nil
}

// MakePublic grants anyone-with-the-link read access
func (m *Manager) MakePublic(ctx context.Context, reqCtx *types.RequestContext, fileID string) (*types.Permission, error) {
	return m.Create(ctx, reqCtx, fileID, CreateOptions{
		Type: TypeAnyone,
		Role: RoleReader,
	})
}

// ShareWithUser grants a single user read access without a notification email
func (m *Manager) ShareWithUser(ctx context.Context, reqCtx *types.RequestContext, fileID string, email string) (*types.Permission, error) {
	return m.Create(ctx, reqCtx, fileID, CreateOptions{
		Type:         TypeUser,
		Role:         RoleReader,
		EmailAddress: email,
	})
}

// ValidateEmail checks that email parses as an RFC 5322 address
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"a valid email address is required to share with a user").
			WithContext("email", email).
			Build())
	}
	return nil
}

func validateCreate(opts CreateOptions) error {
	switch opts.Type {
	case TypeAnyone:
	case TypeUser:
		if err := ValidateEmail(opts.EmailAddress); err != nil {
			return err
		}
	default:
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"unsupported permission type: "+opts.Type).Build())
	}
	if opts.Role == "" {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, "permission role is required").Build())
	}
	return nil
}

func convertPermission(p *drive.Permission) *types.Permission {
	return &types.Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		DisplayName:  p.DisplayName,
	}
}
