// Package storage implements the file side of the application: accepting
// multipart uploads into a temp directory and relocating accepted files into
// permanent public storage. Only relocation is handled here; image content is
// never inspected or processed.
package storage

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileStore moves files between the temp intake area and the public
// directory and produces the public-relative paths stored on entities.
type FileStore struct {
	publicDir string
	tempDir   string
}

// NewFileStore creates a FileStore rooted at the given directories.
func NewFileStore(publicDir, tempDir string) *FileStore {
	return &FileStore{publicDir: publicDir, tempDir: tempDir}
}

// EnsureDirs creates the temp directory and the public subdirectories used
// for recipe images and avatars.
func (s *FileStore) EnsureDirs() error {
	for _, dir := range []string{
		s.tempDir,
		filepath.Join(s.publicDir, "recipes"),
		filepath.Join(s.publicDir, "avatars"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// PublicDir returns the root of public storage, for static serving.
func (s *FileStore) PublicDir() string {
	return s.publicDir
}

// Exists reports whether the file at the given path is accessible.
func (s *FileStore) Exists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SaveUpload writes a multipart upload into the temp directory under a
// timestamp-prefixed, sanitized version of its original name and returns
// the temp path. The caller passes this path to the service that owns the
// file's final destination.
func (s *FileStore) SaveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(header.Filename)
	base := strings.TrimSuffix(filepath.Base(header.Filename), ext)
	sanitized := unsafeNameChars.ReplaceAllString(base, "")
	tempPath := filepath.Join(s.tempDir, fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), sanitized, ext))

	dst, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return tempPath, nil
}

// MoveToPublic relocates a temp file into the named public subdirectory,
// keeping the file's base name. It returns the public-relative path
// ("/public/<subdir>/<name>") to persist on the owning row. The rename is a
// single filesystem operation; on failure no file appears under public.
func (s *FileStore) MoveToPublic(tempPath, subdir string) (string, error) {
	targetDir := filepath.Join(s.publicDir, subdir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", targetDir, err)
	}

	fileName := filepath.Base(tempPath)
	if err := os.Rename(tempPath, filepath.Join(targetDir, fileName)); err != nil {
		return "", fmt.Errorf("failed to move %s into %s: %w", tempPath, targetDir, err)
	}

	return "/" + path.Join("public", subdir, fileName), nil
}

// RemovePublic deletes a previously relocated file given its public-relative
// path. Removal is best-effort: failures are logged, never returned, so a
// dangling file can not block entity deletion.
func (s *FileStore) RemovePublic(publicPath string) {
	if publicPath == "" {
		return
	}
	rel, ok := trimPublicPrefix(publicPath)
	if !ok {
		log.Printf("refusing to delete non-public path %q", publicPath)
		return
	}
	fullPath := filepath.Join(s.publicDir, filepath.FromSlash(rel))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to delete file %s: %v", fullPath, err)
	}
}

// trimPublicPrefix strips the "/public/" prefix and rejects paths that try
// to escape the public root.
func trimPublicPrefix(publicPath string) (string, bool) {
	cleaned := path.Clean("/" + publicPath)
	const prefix = "/public/"
	if len(cleaned) <= len(prefix) || cleaned[:len(prefix)] != prefix {
		return "", false
	}
	return cleaned[len(prefix):], true
}
