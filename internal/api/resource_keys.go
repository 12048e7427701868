package api

import (
	"sort"
	"strings"
	"sync"
)

// ResourceKeyHeader carries resource keys for link-shared items
const ResourceKeyHeader = "X-Goog-Drive-Resource-Keys"

// ResourceKeyManager remembers resource keys for link-shared files so that
// later requests touching those IDs can present them.
type ResourceKeyManager struct {
	mu    sync.RWMutex
	cache map[string]resourceKeyEntry
}

type resourceKeyEntry struct {
	ResourceKey string
	Source      string // url, api
}

// NewResourceKeyManager creates a new resource key manager
func NewResourceKeyManager() *ResourceKeyManager {
	return &ResourceKeyManager{
		cache: make(map[string]resourceKeyEntry),
	}
}

// AddKey adds a resource key to the cache
func (m *ResourceKeyManager) AddKey(fileID, resourceKey, source string) {
	if fileID == "" || resourceKey == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache[fileID] = resourceKeyEntry{ResourceKey: resourceKey, Source: source}
}

// GetKey retrieves a resource key from the cache
func (m *ResourceKeyManager) GetKey(fileID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.cache[fileID]
	if !ok {
		return "", false
	}
	return entry.ResourceKey, true
}

// BuildHeader builds the X-Goog-Drive-Resource-Keys header value for the
// given IDs, or "" when none of them has a known key.
func (m *ResourceKeyManager) BuildHeader(fileIDs []string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(fileIDs))
	var pairs []string
	for _, id := range fileIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if entry, ok := m.cache[id]; ok {
			pairs = append(pairs, id+"/"+entry.ResourceKey)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// Invalidate removes a resource key from the cache
func (m *ResourceKeyManager) Invalidate(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, fileID)
}

// UpdateFromAPIResponse updates cache from file metadata
func (m *ResourceKeyManager) UpdateFromAPIResponse(fileID, resourceKey string) {
	m.AddKey(fileID, resourceKey, "api")
}
