package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// FakeItem is a file or folder held by FakeDrive
type FakeItem struct {
	ID          string
	Name        string
	MimeType    string
	Description string
	Parents     []string
	Content     []byte
	Trashed     bool
	ResourceKey string
	Created     time.Time
	Modified    time.Time
	Permissions []*drive.Permission
}

// IsFolder reports whether the item is a folder
func (i *FakeItem) IsFolder() bool {
	return i.MimeType == folderMimeType
}

type injectedFailure struct {
	method    string
	match     string
	status    int
	remaining int
}

// FakeDrive is an in-memory Drive v3 backend served over httptest. It
// understands the subset of the files and permissions endpoints this module
// calls, including multipart uploads and the query clauses built by the
// managers.
type FakeDrive struct {
	mu       sync.Mutex
	items    map[string]*FakeItem
	order    []string
	nextID   int
	failures []*injectedFailure
	calls    map[string]int

	// PageSize caps every list page regardless of the requested size; 0 means no cap.
	PageSize int

	server *httptest.Server
}

// NewFakeDrive starts a fake Drive server that is closed with the test
func NewFakeDrive(t *testing.T) *FakeDrive {
	t.Helper()
	f := &FakeDrive{
		items: make(map[string]*FakeItem),
		calls: make(map[string]int),
	}
	f.insert(&FakeItem{ID: "root", Name: "My Drive", MimeType: folderMimeType})
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// Service returns a Drive client pointed at the fake server
func (f *FakeDrive) Service(t *testing.T) *drive.Service {
	t.Helper()
	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(f.server.URL+"/"),
		option.WithHTTPClient(f.server.Client()))
	if err != nil {
		t.Fatalf("drive.NewService() error = %v", err)
	}
	return svc
}

// URL returns the base URL of the fake server
func (f *FakeDrive) URL() string {
	return f.server.URL
}

// AddFolder creates a folder under parentID and returns its ID
func (f *FakeDrive) AddFolder(name, parentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(&FakeItem{Name: name, MimeType: folderMimeType, Parents: []string{parentID}})
}

// AddFile creates a file under parentID and returns its ID
func (f *FakeDrive) AddFile(name, parentID string, content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(&FakeItem{Name: name, MimeType: "application/octet-stream", Parents: []string{parentID}, Content: content})
}

// AddItem inserts a fully specified item and returns its ID
func (f *FakeDrive) AddItem(item FakeItem) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := item
	return f.insert(&copied)
}

// Item returns a copy of the item with the given ID
func (f *FakeDrive) Item(id string) (FakeItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return FakeItem{}, false
	}
	return *item, true
}

// Children returns copies of the non-trashed children of parentID in insertion order
func (f *FakeDrive) Children(parentID string) []FakeItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeItem
	for _, id := range f.order {
		item := f.items[id]
		if !item.Trashed && hasParent(item, parentID) {
			out = append(out, *item)
		}
	}
	return out
}

// Len returns the number of stored items, excluding the root folder
func (f *FakeDrive) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) - 1
}

// Fail makes the next times requests whose method equals method and whose
// path plus query contains match answer with status.
func (f *FakeDrive) Fail(method, match string, status, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, &injectedFailure{method: method, match: match, status: status, remaining: times})
}

// Calls returns how many requests were served for an operation key such as
// "list", "get", "create", "update", "delete", "download" or "permission".
func (f *FakeDrive) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeDrive) insert(item *FakeItem) string {
	f.nextID++
	if item.ID == "" {
		item.ID = fmt.Sprintf("fake-%04d", f.nextID)
	}
	now := time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC)
	if item.Created.IsZero() {
		item.Created = now
	}
	if item.Modified.IsZero() {
		item.Modified = now
	}
	if item.MimeType == "" {
		item.MimeType = "application/octet-stream"
	}
	f.items[item.ID] = item
	f.order = append(f.order, item.ID)
	return item.ID
}

func (f *FakeDrive) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := r.URL.Path + "?" + r.URL.RawQuery
	for _, fail := range f.failures {
		if fail.remaining > 0 && fail.method == r.Method && strings.Contains(target, fail.match) {
			fail.remaining--
			writeError(w, fail.status, "backendError", "injected failure")
			return
		}
	}

	idx := strings.LastIndex(r.URL.Path, "/files")
	if idx < 0 {
		writeError(w, http.StatusNotFound, "notFound", "unknown endpoint")
		return
	}
	rest := strings.Trim(r.URL.Path[idx+len("/files"):], "/")
	segments := []string{}
	if rest != "" {
		segments = strings.Split(rest, "/")
	}

	switch {
	case len(segments) == 0 && r.Method == http.MethodGet:
		f.calls["list"]++
		f.list(w, r)
	case len(segments) == 0 && r.Method == http.MethodPost:
		f.calls["create"]++
		f.create(w, r)
	case len(segments) == 1 && r.Method == http.MethodGet:
		if r.URL.Query().Get("alt") == "media" {
			f.calls["download"]++
			f.download(w, segments[0])
			return
		}
		f.calls["get"]++
		f.get(w, segments[0])
	case len(segments) == 1 && r.Method == http.MethodPatch:
		f.calls["update"]++
		f.update(w, r, segments[0])
	case len(segments) == 1 && r.Method == http.MethodDelete:
		f.calls["delete"]++
		f.delete(w, segments[0])
	case len(segments) == 2 && segments[1] == "permissions" && r.Method == http.MethodPost:
		f.calls["permission"]++
		f.permission(w, r, segments[0])
	default:
		writeError(w, http.StatusNotFound, "notFound", "unsupported request "+r.Method+" "+r.URL.Path)
	}
}

func (f *FakeDrive) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := parseQuery(query.Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	var matched []*FakeItem
	for _, id := range f.order {
		if item := f.items[id]; filter.matches(item) {
			matched = append(matched, item)
		}
	}

	pageSize := len(matched)
	if n, err := strconv.Atoi(query.Get("pageSize")); err == nil && n > 0 && n < pageSize {
		pageSize = n
	}
	if f.PageSize > 0 && f.PageSize < pageSize {
		pageSize = f.PageSize
	}
	start := 0
	if token := query.Get("pageToken"); token != "" {
		start, err = strconv.Atoi(token)
		if err != nil || start > len(matched) {
			writeError(w, http.StatusBadRequest, "invalid", "bad page token")
			return
		}
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	resp := &drive.FileList{Files: []*drive.File{}}
	for _, item := range matched[start:end] {
		resp.Files = append(resp.Files, toDriveFile(item))
	}
	if end < len(matched) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func (f *FakeDrive) get(w http.ResponseWriter, id string) {
	item, ok := f.lookup(id)
	if !ok {
		writeNotFound(w, id)
		return
	}
	writeJSON(w, toDriveFile(item))
}

func (f *FakeDrive) download(w http.ResponseWriter, id string) {
	item, ok := f.lookup(id)
	if !ok {
		writeNotFound(w, id)
		return
	}
	if item.IsFolder() {
		writeError(w, http.StatusForbidden, "fileNotDownloadable", "Only files with binary content can be downloaded.")
		return
	}
	w.Header().Set("Content-Type", item.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(item.Content)))
	_, _ = w.Write(item.Content)
}

func (f *FakeDrive) create(w http.ResponseWriter, r *http.Request) {
	meta, content, hasContent, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "badRequest", err.Error())
		return
	}
	parents := meta.Parents
	if len(parents) == 0 {
		parents = []string{"root"}
	}
	for _, p := range parents {
		if p == "root" {
			continue
		}
		parent, ok := f.lookup(p)
		if !ok || !parent.IsFolder() {
			writeNotFound(w, p)
			return
		}
	}
	item := &FakeItem{
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		Description: meta.Description,
		Parents:     parents,
	}
	if hasContent {
		item.Content = content
	}
	f.insert(item)
	writeJSON(w, toDriveFile(item))
}

func (f *FakeDrive) update(w http.ResponseWriter, r *http.Request, id string) {
	item, ok := f.lookup(id)
	if !ok {
		writeNotFound(w, id)
		return
	}
	meta, content, hasContent, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "badRequest", err.Error())
		return
	}
	if meta.Name != "" {
		item.Name = meta.Name
	}
	if meta.Description != "" {
		item.Description = meta.Description
	}
	if meta.Trashed {
		item.Trashed = true
	}
	if hasContent {
		item.Content = content
	}

	query := r.URL.Query()
	if remove := query.Get("removeParents"); remove != "" {
		drop := strings.Split(remove, ",")
		kept := item.Parents[:0]
		for _, p := range item.Parents {
			if !contains(drop, p) {
				kept = append(kept, p)
			}
		}
		item.Parents = kept
	}
	if add := query.Get("addParents"); add != "" {
		item.Parents = append(item.Parents, strings.Split(add, ",")...)
	}
	item.Modified = item.Modified.Add(time.Minute)
	writeJSON(w, toDriveFile(item))
}

func (f *FakeDrive) delete(w http.ResponseWriter, id string) {
	if _, ok := f.lookup(id); !ok {
		writeNotFound(w, id)
		return
	}
	f.remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeDrive) remove(id string) {
	for _, childID := range append([]string(nil), f.order...) {
		if child, ok := f.items[childID]; ok && hasParent(child, id) {
			f.remove(childID)
		}
	}
	delete(f.items, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *FakeDrive) permission(w http.ResponseWriter, r *http.Request, id string) {
	item, ok := f.lookup(id)
	if !ok {
		writeNotFound(w, id)
		return
	}
	var perm drive.Permission
	if err := json.NewDecoder(r.Body).Decode(&perm); err != nil {
		writeError(w, http.StatusBadRequest, "badRequest", err.Error())
		return
	}
	perm.Id = fmt.Sprintf("perm-%d", len(item.Permissions)+1)
	item.Permissions = append(item.Permissions, &perm)
	writeJSON(w, &perm)
}

func (f *FakeDrive) lookup(id string) (*FakeItem, bool) {
	item, ok := f.items[id]
	return item, ok
}

func toDriveFile(item *FakeItem) *drive.File {
	file := &drive.File{
		Id:           item.ID,
		Name:         item.Name,
		MimeType:     item.MimeType,
		Description:  item.Description,
		Parents:      item.Parents,
		Trashed:      item.Trashed,
		ResourceKey:  item.ResourceKey,
		CreatedTime:  item.Created.Format(time.RFC3339),
		ModifiedTime: item.Modified.Format(time.RFC3339),
	}
	if item.IsFolder() {
		file.WebViewLink = "https://drive.google.com/drive/folders/" + item.ID
	} else {
		file.Size = int64(len(item.Content))
		file.WebViewLink = "https://drive.google.com/file/d/" + item.ID + "/view?usp=drivesdk"
		file.WebContentLink = "https://drive.google.com/uc?id=" + item.ID + "&export=download"
	}
	return file
}

// readBody decodes JSON metadata and, for media uploads, the content
func readBody(r *http.Request) (*drive.File, []byte, bool, error) {
	meta := &drive.File{}
	switch r.URL.Query().Get("uploadType") {
	case "":
		if r.ContentLength == 0 {
			return meta, nil, false, nil
		}
		err := json.NewDecoder(r.Body).Decode(meta)
		if err == io.EOF {
			err = nil
		}
		return meta, nil, false, err
	case "media":
		meta.MimeType = r.Header.Get("Content-Type")
		content, err := io.ReadAll(r.Body)
		return meta, content, true, err
	case "multipart":
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, nil, false, err
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		if err != nil {
			return nil, nil, false, err
		}
		if err := json.NewDecoder(part).Decode(meta); err != nil {
			return nil, nil, false, err
		}
		part, err = reader.NextPart()
		if err != nil {
			return nil, nil, false, err
		}
		if meta.MimeType == "" {
			meta.MimeType = part.Header.Get("Content-Type")
		}
		content, err := io.ReadAll(part)
		return meta, content, true, err
	default:
		return nil, nil, false, fmt.Errorf("unsupported uploadType %q", r.URL.Query().Get("uploadType"))
	}
}

// queryFilter is the subset of the Drive query language the managers emit
type queryFilter struct {
	parent       string
	name         *string
	mimeType     *string
	notMimeType  *string
	trashedValue *bool
}

func (q *queryFilter) matches(item *FakeItem) bool {
	if q.parent != "" && !hasParent(item, q.parent) {
		return false
	}
	if q.name != nil && item.Name != *q.name {
		return false
	}
	if q.mimeType != nil && item.MimeType != *q.mimeType {
		return false
	}
	if q.notMimeType != nil && item.MimeType == *q.notMimeType {
		return false
	}
	if q.trashedValue != nil && item.Trashed != *q.trashedValue {
		return false
	}
	return true
}

func parseQuery(q string) (*queryFilter, error) {
	filter := &queryFilter{}
	for _, clause := range splitClauses(q) {
		clause = strings.TrimSpace(clause)
		switch {
		case clause == "":
		case strings.HasSuffix(clause, " in parents"):
			value, err := unquote(strings.TrimSuffix(clause, " in parents"))
			if err != nil {
				return nil, err
			}
			filter.parent = value
		case clause == "trashed = false" || clause == "trashed = true":
			v := clause == "trashed = true"
			filter.trashedValue = &v
		case strings.HasPrefix(clause, "name = "):
			value, err := unquote(strings.TrimPrefix(clause, "name = "))
			if err != nil {
				return nil, err
			}
			filter.name = &value
		case strings.HasPrefix(clause, "mimeType != "):
			value, err := unquote(strings.TrimPrefix(clause, "mimeType != "))
			if err != nil {
				return nil, err
			}
			filter.notMimeType = &value
		case strings.HasPrefix(clause, "mimeType = "):
			value, err := unquote(strings.TrimPrefix(clause, "mimeType = "))
			if err != nil {
				return nil, err
			}
			filter.mimeType = &value
		default:
			return nil, fmt.Errorf("unsupported query clause %q", clause)
		}
	}
	return filter, nil
}

// splitClauses splits on " and " outside quoted strings
func splitClauses(q string) []string {
	var clauses []string
	var current strings.Builder
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(q):
			current.WriteByte(c)
			current.WriteByte(q[i+1])
			i++
			continue
		case c == '\'':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(q[i:], " and "):
			clauses = append(clauses, current.String())
			current.Reset()
			i += len(" and ") - 1
			continue
		}
		current.WriteByte(c)
	}
	return append(clauses, current.String())
}

func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", fmt.Errorf("expected quoted value, got %q", s)
	}
	s = s[1 : len(s)-1]
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		out.WriteByte(s[i])
	}
	return out.String(), nil
}

func hasParent(item *FakeItem, parentID string) bool {
	return contains(item.Parents, parentID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotFound(w http.ResponseWriter, id string) {
	writeError(w, http.StatusNotFound, "notFound", "File not found: "+id+".")
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors": []map[string]string{
				{"reason": reason, "message": message, "domain": "global"},
			},
		},
	})
}
