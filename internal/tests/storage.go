package tests

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"figures/internal/storage"
)

// MemoryStorage is an in-memory IStorage for tests.
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: map[string][]byte{}}
}

func (s *MemoryStorage) GetBucketName() string { return "memory" }

func (s *MemoryStorage) PutObject(_ context.Context, objectPath string, body io.Reader, _ int64, _ string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[objectPath] = data
	return nil
}

func (s *MemoryStorage) PresignedGetObject(_ context.Context, objectPath string) (string, error) {
	return "https://storage.test/" + objectPath + "?signature=test", nil
}

func (s *MemoryStorage) StatObject(_ context.Context, objectPath string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[objectPath]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: objectPath, Size: int64(len(data)), LastModified: time.Now()}, nil
}

func (s *MemoryStorage) ListObjects(_ context.Context, prefix string, maxKeys int32) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Objects))
	for key := range s.Objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if maxKeys > 0 && len(keys) > int(maxKeys) {
		keys = keys[:maxKeys]
	}
	objects := make([]storage.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(s.Objects[key]))})
	}
	return objects, nil
}

func (s *MemoryStorage) RemoveObject(_ context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, objectPath)
	return nil
}

var _ storage.IStorage = (*MemoryStorage)(nil)
