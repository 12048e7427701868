// Package links builds Drive sharing links and turns user-supplied
// references (IDs or sharing URLs) back into file IDs.
package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dl-alexandre/drivesync/internal/utils"
)

const (
	viewURLFormat     = "https://drive.google.com/file/d/%s/view?usp=drivesdk"
	directURLPrefix   = "https://drive.google.com/uc?export=download&id="
	folderURLPrefix   = "https://drive.google.com/drive/folders/"
	driveHost         = "drive.google.com"
	docsHost          = "docs.google.com"
	minFolderIDLength = 25
)

var (
	filePathIDPattern = regexp.MustCompile(`/d/([-\w]+)`)
	folderPathPattern = regexp.MustCompile(`/folders/([-\w]+)`)
	bareIDPattern     = regexp.MustCompile(`^[-\w]+$`)
	longIDPattern     = regexp.MustCompile(`[-\w]{25,}`)
)

// ViewURL returns the canonical browser link for a file. webViewLink is
// preferred when Drive returned one.
func ViewURL(fileID, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	if fileID == "" {
		return ""
	}
	return fmt.Sprintf(viewURLFormat, url.PathEscape(fileID))
}

// DirectDownloadURL returns the link that downloads file bytes without the preview page
func DirectDownloadURL(fileID string) string {
	if fileID == "" {
		return ""
	}
	return directURLPrefix + url.QueryEscape(fileID)
}

// FolderURL returns the browser link for a folder
func FolderURL(folderID string) string {
	if folderID == "" {
		return ""
	}
	return folderURLPrefix + url.PathEscape(folderID)
}

// Reference is a parsed sharing URL
type Reference struct {
	ID          string
	ResourceKey string
	IsFolder    bool
}

// Parse extracts the item ID (and resource key, if present) from a Drive or
// Docs sharing URL. Recognized shapes are /d/<id>/, /folders/<id> and ?id=<id>.
func Parse(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, utils.InvalidReferenceError("empty Google Drive URL")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Reference{}, utils.InvalidReferenceError("invalid Google Drive URL: %s", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != driveHost && host != docsHost {
		return Reference{}, utils.InvalidReferenceError("not a Google Drive URL: %s", raw)
	}

	ref := Reference{ResourceKey: u.Query().Get("resourcekey")}
	switch {
	case folderPathPattern.MatchString(u.Path):
		ref.ID = folderPathPattern.FindStringSubmatch(u.Path)[1]
		ref.IsFolder = true
	case filePathIDPattern.MatchString(u.Path):
		ref.ID = filePathIDPattern.FindStringSubmatch(u.Path)[1]
	case u.Query().Get("id") != "":
		ref.ID = u.Query().Get("id")
	}

	if ref.ID == "" || !bareIDPattern.MatchString(ref.ID) {
		return Reference{}, utils.InvalidReferenceError("invalid Google Drive URL: %s", raw)
	}
	return ref, nil
}

// ExtractFileID returns the file ID carried by a sharing URL
func ExtractFileID(raw string) (string, error) {
	ref, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// ExtractFolderID returns the folder ID carried by a folder URL. Besides the
// shapes Parse understands, any run of 25 or more ID characters is accepted.
func ExtractFolderID(raw string) (string, error) {
	if ref, err := Parse(raw); err == nil {
		return ref.ID, nil
	}
	if id := longIDPattern.FindString(raw); len(id) >= minFolderIDLength {
		return id, nil
	}
	return "", utils.InvalidReferenceError("invalid Google Drive folder URL: %s", raw)
}

// ResolveID picks a file ID from an explicit id or a sharing URL, id first.
func ResolveID(fileID, rawURL string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID != "" {
		if !bareIDPattern.MatchString(fileID) {
			return "", utils.InvalidReferenceError("invalid file ID: %q", fileID)
		}
		return fileID, nil
	}
	if strings.TrimSpace(rawURL) == "" {
		return "", utils.InvalidReferenceError("file ID or URL must be provided")
	}
	return ExtractFileID(rawURL)
}

// EscapeQueryValue escapes a literal for use inside a single-quoted Drive query string
func EscapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
