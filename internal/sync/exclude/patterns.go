package exclude

import (
	"path"
	"strings"
)

// Matcher excludes entries by file extension. Extensions are compared
// case-insensitively and without the leading dot.
type Matcher struct {
	extensions map[string]struct{}
}

// New builds a matcher from extensions such as "png" or ".JPG".
// Blank entries are ignored.
func New(extensions []string) *Matcher {
	m := &Matcher{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = normalize(ext)
		if ext == "" {
			continue
		}
		m.extensions[ext] = struct{}{}
	}
	return m
}

// IsExcluded reports whether name's extension is in the exclusion set. It is
// applied to directories too, so a directory named "cache.tmp" is skipped
// along with everything below it when "tmp" is excluded.
func (m *Matcher) IsExcluded(name string) bool {
	if m == nil || len(m.extensions) == 0 {
		return false
	}
	ext := Extension(name)
	if ext == "" {
		return false
	}
	_, ok := m.extensions[ext]
	return ok
}

// Len returns the number of distinct excluded extensions
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.extensions)
}

// Extension returns the lowercase extension of name without the leading dot,
// or "" when there is none. Dotfiles such as ".env" have no extension.
func Extension(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
