package sync

import (
	"testing"

	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFile(t *testing.T) {
	entries := []RemoteEntry{
		{ID: "1", Name: "a.txt", Size: 1},
		{ID: "2", Name: "a.txt", IsFolder: true},
		{ID: "3", Name: "b.txt", Size: 3},
		{ID: "4", Name: "b.txt", Size: 4},
		{ID: "5", Name: "C.txt"},
	}

	tests := []struct {
		name      string
		lookup    string
		wantKind  MatchKind
		wantID    string
		wantCount int
	}{
		{"unique ignores same-named folder", "a.txt", MatchUnique, "1", 1},
		{"first of many", "b.txt", MatchFirstOfMany, "3", 2},
		{"case sensitive", "c.txt", MatchNone, "", 0},
		{"absent", "z.txt", MatchNone, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchFile(entries, tt.lookup)
			assert.Equal(t, tt.wantKind, m.Kind)
			assert.Equal(t, tt.wantCount, m.Count)
			if tt.wantID == "" {
				assert.False(t, m.Found())
				assert.Nil(t, m.Entry)
				return
			}
			require.True(t, m.Found())
			assert.Equal(t, tt.wantID, m.Entry.ID)
		})
	}
}

func TestMatchFolder(t *testing.T) {
	entries := []RemoteEntry{
		{ID: "1", Name: "docs"},
		{ID: "2", Name: "docs", IsFolder: true},
	}

	m := MatchFolder(entries, "docs")
	assert.Equal(t, MatchUnique, m.Kind)
	assert.Equal(t, "2", m.Entry.ID)
}

func TestMatchKindString(t *testing.T) {
	assert.Equal(t, "none", MatchNone.String())
	assert.Equal(t, "unique", MatchUnique.String())
	assert.Equal(t, "first-of-many", MatchFirstOfMany.String())
}

func TestShouldTransfer(t *testing.T) {
	assert.False(t, ShouldTransfer(10, 10))
	assert.True(t, ShouldTransfer(10, 11))
	assert.True(t, ShouldTransfer(0, 1))
	assert.False(t, ShouldTransfer(0, 0))
}

func TestStatSet_LastWriteWinsInPlace(t *testing.T) {
	s := newStatSet()
	s.add(&types.FileStat{FilePath: "/a", FileSize: 1})
	s.add(&types.FileStat{FilePath: "/b", FileSize: 2})
	s.add(&types.FileStat{FilePath: "/a", FileSize: 3})

	list := s.list()
	require.Len(t, list, 2)
	assert.Equal(t, "/a", list[0].FilePath)
	assert.Equal(t, int64(3), list[0].FileSize)
	assert.Equal(t, "/b", list[1].FilePath)
}

func TestStatSet_EmptyListIsNotNil(t *testing.T) {
	assert.NotNil(t, newStatSet().list())
}

func TestLocalName(t *testing.T) {
	name, err := localName("a/b")
	require.NoError(t, err)
	assert.Equal(t, "a_b", name)

	for _, bad := range []string{"", ".", ".."} {
		_, err := localName(bad)
		assert.Error(t, err, bad)
	}
}
