package links

import (
	"testing"

	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/file/d/abc/view?usp=drivesdk", ViewURL("abc", ""))
	assert.Equal(t, "https://example/view", ViewURL("abc", "https://example/view"))
	assert.Empty(t, ViewURL("", ""))
}

func TestDirectDownloadURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc-_1", DirectDownloadURL("abc-_1"))
	assert.Empty(t, DirectDownloadURL(""))
}

func TestFolderURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/drive/folders/F1", FolderURL("F1"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Reference
		wantOK bool
	}{
		{
			name:   "file view link",
			raw:    "https://drive.google.com/file/d/1AbC_d-E/view?usp=sharing",
			want:   Reference{ID: "1AbC_d-E"},
			wantOK: true,
		},
		{
			name:   "file link without trailing segment",
			raw:    "https://drive.google.com/file/d/1AbC",
			want:   Reference{ID: "1AbC"},
			wantOK: true,
		},
		{
			name:   "open with id and resource key",
			raw:    "https://drive.google.com/open?id=XYZ&resourcekey=0-key",
			want:   Reference{ID: "XYZ", ResourceKey: "0-key"},
			wantOK: true,
		},
		{
			name:   "direct download link",
			raw:    "https://drive.google.com/uc?export=download&id=XYZ",
			want:   Reference{ID: "XYZ"},
			wantOK: true,
		},
		{
			name:   "folder link",
			raw:    "https://drive.google.com/drive/folders/FOLDER123?usp=sharing",
			want:   Reference{ID: "FOLDER123", IsFolder: true},
			wantOK: true,
		},
		{
			name:   "docs link",
			raw:    "https://docs.google.com/document/d/DOC1/edit",
			want:   Reference{ID: "DOC1"},
			wantOK: true,
		},
		{name: "empty", raw: ""},
		{name: "foreign host", raw: "https://example.com/file/d/abc/view"},
		{name: "no id", raw: "https://drive.google.com/drive/my-drive"},
		{name: "not a url", raw: "just some words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if !tt.wantOK {
				require.Error(t, err)
				assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFolderID(t *testing.T) {
	id, err := ExtractFolderID("https://drive.google.com/drive/u/0/folders/1a2b3c4d5e6f7g8h9i0jKLMNOPQ")
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c4d5e6f7g8h9i0jKLMNOPQ", id)

	id, err = ExtractFolderID("folder id is 1a2b3c4d5e6f7g8h9i0jKLMNOPQ here")
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c4d5e6f7g8h9i0jKLMNOPQ", id)

	_, err = ExtractFolderID("short")
	assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))
}

func TestResolveID(t *testing.T) {
	id, err := ResolveID("abc", "https://drive.google.com/file/d/other/view")
	require.NoError(t, err)
	assert.Equal(t, "abc", id, "explicit id wins over url")

	id, err = ResolveID("", "https://drive.google.com/file/d/fromurl/view")
	require.NoError(t, err)
	assert.Equal(t, "fromurl", id)

	_, err = ResolveID("", "")
	assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))

	_, err = ResolveID("bad id!", "")
	assert.Equal(t, utils.KindInvalidReference, utils.KindOf(err))
}

func TestEscapeQueryValue(t *testing.T) {
	assert.Equal(t, `it\'s a \\ test`, EscapeQueryValue(`it's a \ test`))
}
