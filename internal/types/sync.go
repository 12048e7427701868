package types

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressFunc receives a transfer percentage in [0, 100]
type ProgressFunc func(percent float64)

// FileStat describes one leaf file visited by a folder push or pull
type FileStat struct {
	FileName    string `json:"fileName"`
	FilePath    string `json:"filePath,omitempty"`
	FileSize    int64  `json:"fileSize"`
	FileURL     string `json:"fileUrl"`
	FileType    string `json:"fileType"`
	DownloadURL string `json:"downloadUrl"`
}

// FolderResult is the outcome of a folder push or pull
type FolderResult struct {
	Status       bool        `json:"status"`
	Updated      bool        `json:"updated"`
	FolderID     string      `json:"folderId,omitempty"`
	FolderURL    string      `json:"folderUrl,omitempty"`
	FolderName   string      `json:"folderName,omitempty"`
	Description  string      `json:"description,omitempty"`
	FileCount    int         `json:"fileCount"`
	SrcPath      string      `json:"srcPath,omitempty"`
	DestPath     string      `json:"destPath,omitempty"`
	CreatedTime  *time.Time  `json:"createdTime,omitempty"`
	ModifiedTime *time.Time  `json:"modifiedTime,omitempty"`
	Message      string      `json:"message"`
	FileStats    []*FileStat `json:"fileStats"`
}

func (r *FolderResult) Headers() []string {
	return []string{"Name", "Type", "Size", "Path", "Download URL"}
}

func (r *FolderResult) Rows() [][]string {
	rows := make([][]string, len(r.FileStats))
	for i, s := range r.FileStats {
		rows[i] = []string{
			s.FileName,
			s.FileType,
			humanize.IBytes(uint64(max(s.FileSize, 0))),
			s.FilePath,
			s.DownloadURL,
		}
	}
	return rows
}

func (r *FolderResult) EmptyMessage() string {
	if !r.Status {
		return r.Message
	}
	return fmt.Sprintf("%s (no files)", r.Message)
}
