package types

import "github.com/dustin/go-humanize"

// TableRenderer is implemented by results that print as a table. A result
// with no rows prints EmptyMessage instead.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

// FileTransferResult is returned by single-file uploads
type FileTransferResult struct {
	Status            bool   `json:"status"`
	Updated           bool   `json:"updated"`
	Skipped           bool   `json:"skipped,omitempty"`
	Message           string `json:"message"`
	FileID            string `json:"fileId,omitempty"`
	FileName          string `json:"fileName,omitempty"`
	FileSize          int64  `json:"fileSize,omitempty"`
	DownloadURL       string `json:"downloadUrl,omitempty"`
	DirectDownloadURL string `json:"directDownloadUrl,omitempty"`
	LocalPath         string `json:"localPath,omitempty"`
}

func (r *FileTransferResult) Headers() []string {
	return []string{"ID", "Name", "Status", "Message", "Link"}
}

func (r *FileTransferResult) Rows() [][]string {
	return [][]string{{truncateID(r.FileID, 20), r.FileName, statusText(r.Status), r.Message, r.DownloadURL}}
}

func (r *FileTransferResult) EmptyMessage() string { return r.Message }

// FileExistsResult reports whether a file reference resolves
type FileExistsResult struct {
	Exists             bool   `json:"exists"`
	FileID             string `json:"fileId,omitempty"`
	FileName           string `json:"fileName,omitempty"`
	FileSize           int64  `json:"fileSize,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
	ModifiedTime       string `json:"modifiedTime,omitempty"`
	FileURL            string `json:"fileUrl,omitempty"`
	DirectDownloadLink string `json:"directDownloadLink,omitempty"`
	Message            string `json:"message"`
}

func (r *FileExistsResult) Headers() []string {
	return []string{"Exists", "ID", "Name", "Modified", "Link"}
}

func (r *FileExistsResult) Rows() [][]string {
	exists := "no"
	if r.Exists {
		exists = "yes"
	}
	return [][]string{{exists, truncateID(r.FileID, 20), r.FileName, r.ModifiedTime, r.FileURL}}
}

func (r *FileExistsResult) EmptyMessage() string { return r.Message }

// RenameResult is returned by RenameFile
type RenameResult struct {
	Status       bool   `json:"status"`
	Message      string `json:"message"`
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

func (r *RenameResult) Headers() []string {
	return []string{"ID", "Name", "Status", "Message"}
}

func (r *RenameResult) Rows() [][]string {
	return [][]string{{truncateID(r.ID, 20), r.Name, statusText(r.Status), r.Message}}
}

func (r *RenameResult) EmptyMessage() string { return r.Message }

// OperationResult is a bare status/message pair
type OperationResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (r *OperationResult) Headers() []string { return []string{"Status", "Message"} }

func (r *OperationResult) Rows() [][]string {
	return [][]string{{statusText(r.Status), r.Message}}
}

func (r *OperationResult) EmptyMessage() string { return r.Message }

// TreeSummary counts the outcome of a recursive share or wipe
type TreeSummary struct {
	Status    bool     `json:"status"`
	Message   string   `json:"message"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failedIds,omitempty"`
}

func (r *TreeSummary) Headers() []string {
	return []string{"Status", "Succeeded", "Failed", "Message"}
}

func (r *TreeSummary) Rows() [][]string {
	return [][]string{{statusText(r.Status), itoa(r.Succeeded), itoa(r.Failed), r.Message}}
}

func (r *TreeSummary) EmptyMessage() string { return r.Message }

func statusText(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func itoa(n int) string {
	return humanize.Comma(int64(n))
}

func truncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	if maxLen <= 3 {
		return id[:maxLen]
	}
	return id[:maxLen-3] + "..."
}
