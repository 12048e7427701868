package utils

// Upload thresholds (binary units)
const (
	UploadSimpleMaxBytes = 5 * 1024 * 1024 // 5 MiB
	UploadChunkSize      = 8 * 1024 * 1024 // 8 MiB
	MimeSniffBytes       = 3072
)

// OAuth scopes
const (
	ScopeFull             = "https://www.googleapis.com/auth/drive"
	ScopeFile             = "https://www.googleapis.com/auth/drive.file"
	ScopeReadonly         = "https://www.googleapis.com/auth/drive.readonly"
	ScopeMetadataReadonly = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

// ScopesServiceAccount is requested for service-account credentials
var ScopesServiceAccount = []string{ScopeFull}

// Drive API base URLs
const (
	DriveAPIBase    = "https://www.googleapis.com/drive/v3"
	DriveUploadBase = "https://www.googleapis.com/upload/drive/v3"
)

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Listing and batching
const (
	DefaultPageSize  = 100
	MaxPageSize      = 1000
	BatchDeleteWidth = 10
)

// RootFolderID is the alias Drive accepts for the caller's My Drive root
const RootFolderID = "root"

// Schema version
const SchemaVersion = "1.0"

// Environment variables honoured for compatibility with existing deployments
const (
	EnvServiceAccountKeyFile = "SERVICE_ACCOUNT_KEY_FILE"
	EnvDefaultDownloadPath   = "DEFAULT_DOWNLOAD_PATH"
)

// Google Workspace MIME types
const (
	MimeTypeDocument     = "application/vnd.google-apps.document"
	MimeTypeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypePresentation = "application/vnd.google-apps.presentation"
	MimeTypeDrawing      = "application/vnd.google-apps.drawing"
	MimeTypeForm         = "application/vnd.google-apps.form"
	MimeTypeScript       = "application/vnd.google-apps.script"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeShortcut     = "application/vnd.google-apps.shortcut"
)

// IsWorkspaceMimeType checks if a MIME type is a Google Workspace type.
// Workspace documents have no binary content and cannot be downloaded as-is.
func IsWorkspaceMimeType(mimeType string) bool {
	switch mimeType {
	case MimeTypeDocument, MimeTypeSpreadsheet, MimeTypePresentation,
		MimeTypeDrawing, MimeTypeForm, MimeTypeScript, MimeTypeShortcut:
		return true
	}
	return false
}
