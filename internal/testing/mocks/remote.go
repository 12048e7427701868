package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdsync "sync"
	"time"

	dsync "github.com/dl-alexandre/drivesync/internal/sync"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// RootID is the ID of the mock remote's root folder
const RootID = "root"

type node struct {
	entry   dsync.RemoteEntry
	parent  string
	content []byte
	public  bool
}

// MockRemote is an in-memory implementation of the synchronizer's Remote.
// Listing order is insertion order. The Func fields, when set, replace the
// default behaviour of the matching method, like the function-field mocks
// used elsewhere in the tests.
type MockRemote struct {
	mu       stdsync.Mutex
	nodes    map[string]*node
	children map[string][]string
	nextID   int
	calls    map[string]int

	// PageSize makes ListChildren assemble its result from pages of this size,
	// counting one "listPage" call per page. 0 returns everything in one page.
	PageSize int

	// FailListOnCall makes the Nth ListChildren call (1-based) return ListErr
	FailListOnCall int
	ListErr        error

	UploadFunc   func(ctx context.Context, req dsync.UploadRequest) (*dsync.RemoteEntry, error)
	DownloadFunc func(ctx context.Context, id string, w io.Writer) (int64, error)
}

// NewMockRemote creates an empty remote with a root folder
func NewMockRemote() *MockRemote {
	m := &MockRemote{
		nodes:    make(map[string]*node),
		children: make(map[string][]string),
		calls:    make(map[string]int),
	}
	m.nodes[RootID] = &node{entry: dsync.RemoteEntry{ID: RootID, Name: "My Drive", IsFolder: true, MimeType: utils.MimeTypeFolder}}
	return m
}

// AddFolder adds a folder under parentID and returns its ID
func (m *MockRemote) AddFolder(name, parentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(name, parentID, true, nil, utils.MimeTypeFolder)
}

// AddFile adds a file under parentID and returns its ID
func (m *MockRemote) AddFile(name, parentID string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(name, parentID, false, content, "application/octet-stream")
}

// AddDocument adds a Google Workspace document, which has no binary content
func (m *MockRemote) AddDocument(name, parentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(name, parentID, false, nil, utils.MimeTypeDocument)
}

// SetContent replaces a file's content without counting as an upload
func (m *MockRemote) SetContent(id string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[id]
	n.content = content
	n.entry.Size = int64(len(content))
}

// Content returns a file's content
func (m *MockRemote) Content(id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[id]; ok {
		return n.content
	}
	return nil
}

// Children returns the entries directly under parentID
func (m *MockRemote) Children(parentID string) []dsync.RemoteEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(parentID)
}

// Lookup returns the first child of parentID with the given name
func (m *MockRemote) Lookup(parentID, name string) (dsync.RemoteEntry, bool) {
	for _, e := range m.Children(parentID) {
		if e.Name == name {
			return e, true
		}
	}
	return dsync.RemoteEntry{}, false
}

// IsPublic reports whether SetPublicReadable was applied to id
func (m *MockRemote) IsPublic(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	return ok && n.public
}

// Calls returns how often an operation ran: "list", "listPage", "get",
// "find", "createFolder", "upload", "download" or "public".
func (m *MockRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// ListChildren implements sync.Remote
func (m *MockRemote) ListChildren(ctx context.Context, folderID string) ([]dsync.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	if m.FailListOnCall > 0 && m.calls["list"] == m.FailListOnCall {
		err := m.ListErr
		if err == nil {
			err = utils.NewAppError(utils.NewCLIError(utils.ErrCodeNetworkError, "listing unavailable").Build())
		}
		return nil, err
	}
	if _, ok := m.nodes[folderID]; !ok {
		return nil, notFound(folderID)
	}

	all := m.list(folderID)
	if m.PageSize <= 0 {
		m.calls["listPage"]++
		return all, nil
	}
	var out []dsync.RemoteEntry
	for start := 0; ; start += m.PageSize {
		m.calls["listPage"]++
		end := min(start+m.PageSize, len(all))
		out = append(out, all[start:end]...)
		if end == len(all) {
			return out, nil
		}
	}
}

// GetMetadata implements sync.Remote
func (m *MockRemote) GetMetadata(ctx context.Context, id string) (*dsync.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	n, ok := m.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	entry := n.entry
	return &entry, nil
}

// FindFoldersByName implements sync.Remote
func (m *MockRemote) FindFoldersByName(ctx context.Context, name string) ([]dsync.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["find"]++
	var out []dsync.RemoteEntry
	for i := 1; i <= m.nextID; i++ {
		if n, ok := m.nodes[mockID(i)]; ok && n.entry.IsFolder && n.entry.Name == name {
			out = append(out, n.entry)
		}
	}
	return out, nil
}

// CreateFolder implements sync.Remote
func (m *MockRemote) CreateFolder(ctx context.Context, name, parentID, description string) (*dsync.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["createFolder"]++
	if _, ok := m.nodes[parentID]; !ok {
		return nil, notFound(parentID)
	}
	id := m.add(name, parentID, true, nil, utils.MimeTypeFolder)
	m.nodes[id].entry.Description = description
	entry := m.nodes[id].entry
	return &entry, nil
}

// Upload implements sync.Remote
func (m *MockRemote) Upload(ctx context.Context, req dsync.UploadRequest) (*dsync.RemoteEntry, error) {
	if m.UploadFunc != nil {
		m.mu.Lock()
		m.calls["upload"]++
		m.mu.Unlock()
		return m.UploadFunc(ctx, req)
	}

	content, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if req.Progress != nil {
		req.Progress(100)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["upload"]++
	if req.ExistingID != "" {
		n, ok := m.nodes[req.ExistingID]
		if !ok {
			return nil, notFound(req.ExistingID)
		}
		n.content = content
		n.entry.Size = int64(len(content))
		n.entry.ModifiedTime = n.entry.ModifiedTime.Add(time.Minute)
		entry := n.entry
		return &entry, nil
	}
	if _, ok := m.nodes[req.ParentID]; !ok {
		return nil, notFound(req.ParentID)
	}
	id := m.add(req.Name, req.ParentID, false, content, "application/octet-stream")
	entry := m.nodes[id].entry
	return &entry, nil
}

// Download implements sync.Remote
func (m *MockRemote) Download(ctx context.Context, id string, w io.Writer, size int64, progress types.ProgressFunc) (int64, error) {
	if m.DownloadFunc != nil {
		m.mu.Lock()
		m.calls["download"]++
		m.mu.Unlock()
		return m.DownloadFunc(ctx, id, w)
	}

	m.mu.Lock()
	m.calls["download"]++
	n, ok := m.nodes[id]
	var content []byte
	if ok {
		content = n.content
	}
	m.mu.Unlock()
	if !ok {
		return 0, notFound(id)
	}

	written, err := io.Copy(w, bytes.NewReader(content))
	if err == nil && progress != nil {
		progress(100)
	}
	return written, err
}

// SetPublicReadable implements sync.Remote
func (m *MockRemote) SetPublicReadable(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["public"]++
	n, ok := m.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.public = true
	return nil
}

func (m *MockRemote) add(name, parentID string, folder bool, content []byte, mimeType string) string {
	m.nextID++
	id := mockID(m.nextID)
	created := time.Date(2024, 1, 1, 0, 0, m.nextID, 0, time.UTC)
	m.nodes[id] = &node{
		entry: dsync.RemoteEntry{
			ID:           id,
			Name:         name,
			IsFolder:     folder,
			Size:         int64(len(content)),
			MimeType:     mimeType,
			CreatedTime:  created,
			ModifiedTime: created,
		},
		parent:  parentID,
		content: content,
	}
	m.children[parentID] = append(m.children[parentID], id)
	return id
}

func (m *MockRemote) list(parentID string) []dsync.RemoteEntry {
	out := []dsync.RemoteEntry{}
	for _, id := range m.children[parentID] {
		out = append(out, m.nodes[id].entry)
	}
	return out
}

func mockID(n int) string {
	return fmt.Sprintf("mock-%04d", n)
}

func notFound(id string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound, "File not found: "+id).Build())
}
