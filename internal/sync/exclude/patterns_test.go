package exclude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.txt", "txt"},
		{"photo.JPG", "jpg"},
		{"archive.tar.gz", "gz"},
		{"README", ""},
		{".env", ""},
		{"trailing.", ""},
		{"dir/sub/file.Png", "png"},
		{`dir\file.md`, "md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.name))
		})
	}
}

func TestMatcher(t *testing.T) {
	m := New([]string{"png", ".JPG", " ", ""})

	assert.Equal(t, 2, m.Len())
	assert.True(t, m.IsExcluded("b.png"))
	assert.True(t, m.IsExcluded("B.PNG"))
	assert.True(t, m.IsExcluded("photo.jpg"))
	assert.True(t, m.IsExcluded("cache.png"), "directories are matched by extension too")
	assert.False(t, m.IsExcluded("a.txt"))
	assert.False(t, m.IsExcluded("png"))
}

func TestMatcher_Empty(t *testing.T) {
	var nilMatcher *Matcher
	assert.False(t, nilMatcher.IsExcluded("a.png"))
	assert.False(t, New(nil).IsExcluded("a.png"))
}
