package api

import (
	"net/http"

	"github.com/dl-alexandre/drivesync/internal/types"
	"google.golang.org/api/drive/v3"
)

// RequestShaper applies the flags every Drive call needs: shared-drive
// support, drive scoping for listings and resource-key headers.
type RequestShaper struct {
	client *Client
}

// NewRequestShaper creates a shaper bound to client
func NewRequestShaper(client *Client) *RequestShaper {
	return &RequestShaper{client: client}
}

type headerer interface {
	Header() http.Header
}

func (s *RequestShaper) applyResourceKeys(call headerer, reqCtx *types.RequestContext) {
	ids := append(append([]string{}, reqCtx.InvolvedFileIDs...), reqCtx.InvolvedParentIDs...)
	if header := s.client.ResourceKeys().BuildHeader(ids); header != "" {
		call.Header().Set(ResourceKeyHeader, header)
	}
}

func (s *RequestShaper) ShapeFilesList(call *drive.FilesListCall, reqCtx *types.RequestContext) *drive.FilesListCall {
	call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
	if reqCtx.DriveID != "" {
		call = call.Corpora("drive").DriveId(reqCtx.DriveID)
	}
	s.applyResourceKeys(call, reqCtx)
	return call
}

func (s *RequestShaper) ShapeFilesGet(call *drive.FilesGetCall, reqCtx *types.RequestContext) *drive.FilesGetCall {
	call = call.SupportsAllDrives(true)
	s.applyResourceKeys(call, reqCtx)
	return call
}

func (s *RequestShaper) ShapeFilesCreate(call *drive.FilesCreateCall, reqCtx *types.RequestContext) *drive.FilesCreateCall {
	call = call.SupportsAllDrives(true)
	s.applyResourceKeys(call, reqCtx)
	return call
}

func (s *RequestShaper) ShapeFilesUpdate(call *drive.FilesUpdateCall, reqCtx *types.RequestContext) *drive.FilesUpdateCall {
	call = call.SupportsAllDrives(true)
	s.applyResourceKeys(call, reqCtx)
	return call
}

func (s *RequestShaper) ShapeFilesDelete(call *drive.FilesDeleteCall, reqCtx *types.RequestContext) *drive.FilesDeleteCall {
	call = call.SupportsAllDrives(true)
	s.applyResourceKeys(call, reqCtx)
	return call
}

func (s *RequestShaper) ShapePermissionsCreate(call *drive.PermissionsCreateCall, reqCtx *types.RequestContext) *drive.PermissionsCreateCall {
	call = call.SupportsAllDrives(true)
	s.applyResourceKeys(call, reqCtx)
	return call
}
