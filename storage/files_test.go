package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "public"), filepath.Join(t.TempDir(), "tmp"))
	require.NoError(t, store.EnsureDirs())
	return store
}

// uploadFixture builds a real multipart file/header pair the way the HTTP
// layer would hand them over.
func uploadFixture(t *testing.T, fileName, content string) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("img", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	file, header, err := req.FormFile("img")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func TestSaveUploadSanitizesName(t *testing.T) {
	store := newTestStore(t)

	file, header := uploadFixture(t, "my photo (1)!.jpg", "image-bytes")
	tempPath, err := store.SaveUpload(file, header)
	require.NoError(t, err)

	base := filepath.Base(tempPath)
	assert.True(t, strings.HasSuffix(base, "myphoto1.jpg"), "got %q", base)
	assert.True(t, store.Exists(tempPath))

	content, err := os.ReadFile(tempPath)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(content))
}

func TestMoveToPublic(t *testing.T) {
	store := newTestStore(t)

	file, header := uploadFixture(t, "dish.png", "png-bytes")
	tempPath, err := store.SaveUpload(file, header)
	require.NoError(t, err)

	publicPath, err := store.MoveToPublic(tempPath, "recipes")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(publicPath, "/public/recipes/"))
	assert.False(t, store.Exists(tempPath), "temp file should be gone after the move")

	onDisk := filepath.Join(store.PublicDir(), "recipes", filepath.Base(tempPath))
	assert.True(t, store.Exists(onDisk))
}

func TestMoveToPublicMissingSource(t *testing.T) {
	store := newTestStore(t)

	_, err := store.MoveToPublic(filepath.Join(t.TempDir(), "nope.jpg"), "recipes")
	assert.Error(t, err)
}

func TestRemovePublic(t *testing.T) {
	store := newTestStore(t)

	file, header := uploadFixture(t, "dish.webp", "webp-bytes")
	tempPath, err := store.SaveUpload(file, header)
	require.NoError(t, err)
	publicPath, err := store.MoveToPublic(tempPath, "recipes")
	require.NoError(t, err)

	store.RemovePublic(publicPath)

	onDisk := filepath.Join(store.PublicDir(), "recipes", filepath.Base(tempPath))
	assert.False(t, store.Exists(onDisk))
}

func TestRemovePublicIgnoresMissingAndUnsafePaths(t *testing.T) {
	store := newTestStore(t)

	// None of these may panic or touch anything outside the public root.
	store.RemovePublic("")
	store.RemovePublic("/public/recipes/never-existed.jpg")
	store.RemovePublic("/etc/passwd")
	store.RemovePublic("/public/../../../etc/passwd")
}

func TestTrimPublicPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/public/recipes/a.jpg", "recipes/a.jpg", true},
		{"/public/avatars/b.png", "avatars/b.png", true},
		{"/public/", "", false},
		{"/public", "", false},
		{"/elsewhere/a.jpg", "", false},
		{"/public/../secret.txt", "", false},
	}
	for _, tc := range cases {
		got, ok := trimPublicPrefix(tc.in)
		assert.Equal(t, tc.ok, ok, "path %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "path %q", tc.in)
		}
	}
}
