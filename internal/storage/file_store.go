// Package storage keeps proof-of-work binaries on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidFileFormat = errors.New("invalid file format. only .jpg, .jpeg, .png, .pdf are allowed")
	ErrFileSizeExceeded  = errors.New("file size exceeds limit")
)

// DefaultMaxFileSize is used when no limit is configured.
const DefaultMaxFileSize = 5 * 1024 * 1024 // 5MB

var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// FileStore writes proof files under baseDir/tasks/<taskID>/.
type FileStore struct {
	baseDir     string
	maxFileSize int64
}

// NewFileStore creates a FileStore rooted at baseDir
func NewFileStore(baseDir string, maxFileSize int64) *FileStore {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &FileStore{baseDir: baseDir, maxFileSize: maxFileSize}
}

// Validate checks name and size without writing anything.
func (s *FileStore) Validate(name string, size int64) error {
	if size > s.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileSizeExceeded, filepath.Base(name), size, s.maxFileSize)
	}
	if !allowedExts[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: %s", ErrInvalidFileFormat, filepath.Base(name))
	}
	return nil
}

// Save stores content for taskID and returns the slash-separated path to
// record on the proof row. Every file gets a fresh name so two uploads of
// the same file name never overwrite each other.
func (s *FileStore) Save(taskID int64, name string, size int64, content io.Reader) (string, error) {
	if err := s.Validate(name, size); err != nil {
		return "", err
	}

	taskDir := filepath.Join(s.baseDir, "tasks", strconv.FormatInt(taskID, 10))
	if err := os.MkdirAll(taskDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	filePath := filepath.Join(taskDir, fileName)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %w", err)
	}

	// Read one byte past the limit so a lying size header is still caught.
	written, err := io.Copy(dst, io.LimitReader(content, s.maxFileSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxFileSize {
		err = fmt.Errorf("%w: %s", ErrFileSizeExceeded, filepath.Base(name))
	}
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filepath.ToSlash(filePath), nil
}

// Remove deletes a stored file. Removing a file that is already gone is not
// an error.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(filepath.FromSlash(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file %s: %w", path, err)
	}
	return nil
}
