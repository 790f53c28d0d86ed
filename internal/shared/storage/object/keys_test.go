package object

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerPrefixIsStableHex(t *testing.T) {
	got := OwnerPrefix("google:12345")
	assert.Equal(t, got, OwnerPrefix("google:12345"))
	assert.NotEqual(t, got, OwnerPrefix("guest:12345"))
	assert.Len(t, got, 64)
	assert.Regexp(t, `^[0-9a-f]+$`, got)
}

func TestSafeFileName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"cv.pdf", "cv.pdf"},
		{"  my resume.docx ", "my resume.docx"},
		{"dir/sub\\cv.pdf", "dir_sub_cv.pdf"},
		{"cv\x00\n.txt", "cv.txt"},
	}
	for _, tc := range cases {
		got, err := SafeFileName(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"", "   ", "../etc/passwd", "\x01\x02"} {
		_, err := SafeFileName(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestSafeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got, err := SafeFileName(strings.Repeat("a", 300) + ".pdf")
	require.NoError(t, err)
	assert.Len(t, []rune(got), maxFileNameRunes)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestUploadKeyLayout(t *testing.T) {
	key, err := UploadKey("guest:g1", "cv.pdf")
	require.NoError(t, err)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, OwnerPrefix("guest:g1"), parts[0])
	assert.Equal(t, "uploads", parts[1])
	assert.True(t, strings.HasSuffix(parts[2], "_cv.pdf"))
	assert.Equal(t, key+".extracted.txt", ExtractedKey(key))

	other, err := UploadKey("guest:g1", "cv.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestCleanKey(t *testing.T) {
	got, err := CleanKey("abc/uploads/./x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "abc/uploads/x.pdf", got)

	for _, bad := range []string{"", "/abs/x", "../x", "a/../../x", "..\\x"} {
		_, err := CleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}
