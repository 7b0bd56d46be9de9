package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	infra "github.com/printdesk/backend/internal/infrastructure/printing"
)

type memoryObject struct {
	data     []byte
	modified time.Time
}

// MemoryDocumentStore keeps documents in process memory.
// It backs tests and single-node development setups where nothing must survive a restart.
type MemoryDocumentStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemoryDocumentStore creates an empty store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// SetClock overrides the time source for stored modification times
func (s *MemoryDocumentStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Save stores a copy of data
func (s *MemoryDocumentStore) Save(ctx context.Context, key infra.DocumentKey, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", infra.NewConvertError(infra.ErrCodeStorageFailed, "operation cancelled", err)
	}
	if err := key.Validate(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", infra.NewConvertError(infra.ErrCodeStorageFailed, "document is empty", nil)
	}

	rel := key.RelativePath()
	s.mu.Lock()
	s.objects[rel] = memoryObject{data: bytes.Clone(data), modified: s.now()}
	s.mu.Unlock()
	return rel, nil
}

// Open returns a reader over the stored bytes
func (s *MemoryDocumentStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	if err := validateStoredPath(storedPath); err != nil {
		return nil, err
	}
	s.mu.RLock()
	obj, ok := s.objects[storedPath]
	s.mu.RUnlock()
	if !ok {
		return nil, infra.NewConvertError(infra.ErrCodeStorageFailed, "document not found", nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes a document
func (s *MemoryDocumentStore) Delete(ctx context.Context, storedPath string) error {
	if err := validateStoredPath(storedPath); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, storedPath)
	s.mu.Unlock()
	return nil
}

// CleanupOlderThan drops documents stored before now-age
func (s *MemoryDocumentStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	deleted := 0
	for k, obj := range s.objects {
		if obj.modified.Before(cutoff) {
			delete(s.objects, k)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored documents
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ infra.DocumentStore = (*MemoryDocumentStore)(nil)
