package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentKey identifies a stored document
type DocumentKey struct {
	RequesterID string
	JobID       uuid.UUID
	SubmittedAt time.Time
	// Extension includes the leading dot
	Extension string
}

// Validate checks that the key can be turned into a safe path
func (k DocumentKey) Validate() error {
	if strings.TrimSpace(k.RequesterID) == "" {
		return NewConvertError(ErrCodeStorageFailed, "requester ID is required", nil)
	}
	if containsDotDot(k.RequesterID) || strings.ContainsAny(k.RequesterID, `/\`) {
		return NewConvertError(ErrCodeStorageFailed, "invalid requester ID", nil)
	}
	if k.JobID == uuid.Nil {
		return NewConvertError(ErrCodeStorageFailed, "job ID is required", nil)
	}
	if k.Extension != "" && (!strings.HasPrefix(k.Extension, ".") || strings.ContainsAny(k.Extension, `/\`)) {
		return NewConvertError(ErrCodeStorageFailed, "invalid extension", nil)
	}
	return nil
}

// RelativePath returns {requester}/{YYYY-MM-DD}/{jobID}{ext} with forward slashes
func (k DocumentKey) RelativePath() string {
	at := k.SubmittedAt
	if at.IsZero() {
		at = time.Now()
	}
	return path.Join(k.RequesterID, at.Format(time.DateOnly), k.JobID.String()+k.Extension)
}

// DocumentStore persists submitted documents
type DocumentStore interface {
	// Save writes data and returns the stored path
	Save(ctx context.Context, key DocumentKey, data []byte) (string, error)
	// Open returns the stored document
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
	// Delete removes a stored document; a missing document is not an error
	Delete(ctx context.Context, storedPath string) error
	// CleanupOlderThan removes documents older than age
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// FileSystemStoreConfig contains configuration for file system storage
type FileSystemStoreConfig struct {
	// BasePath is the root directory (default: ./data/documents)
	BasePath string
	Logger   *zap.Logger
}

// FileSystemStore stores documents on the local file system
type FileSystemStore struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemStore creates the store and its base directory
func NewFileSystemStore(config *FileSystemStoreConfig) (*FileSystemStore, error) {
	if config == nil {
		config = &FileSystemStoreConfig{}
	}
	if config.BasePath == "" {
		config.BasePath = "./data/documents"
	}
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, NewConvertError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create storage directory: %s", config.BasePath), err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemStore{
		basePath: config.BasePath,
		logger:   logger,
	}, nil
}

// Save writes the document and returns its path relative to the base directory
func (s *FileSystemStore) Save(ctx context.Context, key DocumentKey, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewConvertError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if err := key.Validate(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", NewConvertError(ErrCodeStorageFailed, "document is empty", nil)
	}

	rel := key.RelativePath()
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", NewConvertError(ErrCodeStorageFailed, "failed to create directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", NewConvertError(ErrCodeStorageFailed, "failed to write document", err)
	}

	s.logger.Info("document stored",
		zap.String("path", rel),
		zap.Int("size", len(data)))

	return rel, nil
}

// Open returns a reader for a stored document
func (s *FileSystemStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewConvertError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	fullPath, err := s.resolve(storedPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewConvertError(ErrCodeStorageFailed, "document not found", err)
		}
		return nil, NewConvertError(ErrCodeStorageFailed, "failed to open document", err)
	}
	return f, nil
}

// Delete removes a stored document
func (s *FileSystemStore) Delete(ctx context.Context, storedPath string) error {
	if err := ctx.Err(); err != nil {
		return NewConvertError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	fullPath, err := s.resolve(storedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return NewConvertError(ErrCodeStorageFailed, "failed to delete document", err)
	}
	s.logger.Info("document deleted", zap.String("path", storedPath))
	return nil
}

// CleanupOlderThan removes documents whose modification time is older than age
// and prunes the day directories left empty
func (s *FileSystemStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deleted := 0
	var dirs []string

	err := filepath.Walk(s.basePath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if p != s.basePath {
				dirs = append(dirs, p)
			}
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err == nil {
				deleted++
				s.logger.Debug("deleted expired document", zap.String("path", p))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return deleted, NewConvertError(ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	// deepest first so parents empty out after their children
	slices.Reverse(dirs)
	for _, d := range dirs {
		_ = os.Remove(d)
	}

	s.logger.Info("document cleanup completed",
		zap.Int("deleted", deleted),
		zap.Duration("age", age))

	return deleted, nil
}

// resolve maps a stored relative path to an absolute path under the base directory
func (s *FileSystemStore) resolve(storedPath string) (string, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(storedPath))
	if storedPath == "" || filepath.IsAbs(cleanPath) || containsDotDot(storedPath) {
		s.logger.Warn("blocked potentially malicious path", zap.String("path", storedPath))
		return "", NewConvertError(ErrCodeStorageFailed, "invalid path", nil)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", NewConvertError(ErrCodeStorageFailed, "failed to resolve base path", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", NewConvertError(ErrCodeStorageFailed, "failed to resolve file path", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("path", storedPath),
			zap.String("absPath", absPath))
		return "", NewConvertError(ErrCodeStorageFailed, "invalid path", nil)
	}
	return absPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}

var _ DocumentStore = (*FileSystemStore)(nil)
