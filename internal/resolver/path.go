package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dl-alexandre/drivesync/internal/folders"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

// PathResolver resolves slash-separated folder paths such as
// "Projects/2024/Reports" to Drive folder IDs
type PathResolver struct {
	folders  *folders.Manager
	cache    *pathCache
	cacheTTL time.Duration
	now      func() time.Time
}

type pathCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	folderID  string
	timestamp time.Time
}

// NewPathResolver creates a resolver; a zero cacheTTL disables caching
func NewPathResolver(fm *folders.Manager, cacheTTL time.Duration) *PathResolver {
	return &PathResolver{
		folders:  fm,
		cacheTTL: cacheTTL,
		now:      time.Now,
		cache: &pathCache{
			entries: make(map[string]cacheEntry),
		},
	}
}

// ResolveOptions configures path resolution
type ResolveOptions struct {
	// RootID is where the walk starts; "root" when empty
	RootID string
	// StrictMode fails on a segment with several same-named folders
	// instead of picking the oldest one
	StrictMode bool
	UseCache   bool
}

// ResolveResult contains path resolution results
type ResolveResult struct {
	FolderID  string
	Folder    *types.DriveFile
	Ambiguous bool
	Cached    bool
}

// Resolve walks path one segment at a time from opts.RootID
func (r *PathResolver) Resolve(ctx context.Context, reqCtx *types.RequestContext, path string, opts ResolveOptions) (*ResolveResult, error) {
	path = normalizePath(path)
	currentID := opts.RootID
	if currentID == "" {
		currentID = utils.RootFolderID
	}
	if path == "" {
		return &ResolveResult{FolderID: currentID}, nil
	}

	cacheKey := currentID + ":" + path
	if opts.UseCache {
		if cached, ok := r.lookup(cacheKey); ok {
			return &ResolveResult{FolderID: cached, Cached: true}, nil
		}
	}

	segments := strings.Split(path, "/")
	result := &ResolveResult{}
	for i, segment := range segments {
		matches, err := r.folders.FindByName(ctx, reqCtx, segment, currentID)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
				fmt.Sprintf("Path segment not found: %s (at %s)", segment, strings.Join(segments[:i+1], "/"))).
				WithContext("path", path).
				WithContext("segment", segment).
				Build())
		}
		if len(matches) > 1 {
			if opts.StrictMode {
				return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAmbiguousPath,
					fmt.Sprintf("Ambiguous path: multiple folders named '%s'", segment)).
					WithContext("path", path).
					WithContext("matchCount", len(matches)).
					Build())
			}
			sortMatches(matches)
			result.Ambiguous = true
		}
		currentID = matches[0].ID
		result.Folder = matches[0]
	}

	result.FolderID = currentID
	if opts.UseCache {
		r.store(cacheKey, currentID)
	}
	return result, nil
}

// Invalidate drops every cached path
func (r *PathResolver) Invalidate() {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	r.cache.entries = make(map[string]cacheEntry)
}

func (r *PathResolver) lookup(key string) (string, bool) {
	if r.cacheTTL <= 0 {
		return "", false
	}
	r.cache.mu.RLock()
	defer r.cache.mu.RUnlock()
	entry, ok := r.cache.entries[key]
	if !ok || r.now().Sub(entry.timestamp) > r.cacheTTL {
		return "", false
	}
	return entry.folderID, true
}

func (r *PathResolver) store(key, folderID string) {
	if r.cacheTTL <= 0 {
		return
	}
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	r.cache.entries[key] = cacheEntry{folderID: folderID, timestamp: r.now()}
}

// sortMatches orders same-named folders oldest first, then by ID
func sortMatches(matches []*types.DriveFile) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedTime != matches[j].CreatedTime {
			return matches[i].CreatedTime < matches[j].CreatedTime
		}
		return matches[i].ID < matches[j].ID
	})
}

// normalizePath trims surrounding slashes and collapses empty segments
func normalizePath(path string) string {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(path), "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// IsPath reports whether input looks like a folder path rather than an ID
func IsPath(input string) bool {
	return strings.Contains(input, "/") || strings.Contains(input, " ")
}
