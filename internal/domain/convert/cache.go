package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"sync"

	domainimage "pixelmill-server-go/internal/domain/image"
)

// CacheKey derives the deterministic conversion cache key. Identical inputs
// always hash to the same key, so a repeat conversion is a guaranteed hit.
// The art-directed region is part of the tuple: two crops that land on the
// same target width must not alias to one entry.
func CacheKey(path string, format domainimage.Format, quality, width, height int, enhance bool, region *image.Rectangle) string {
	regionPart := ""
	if region != nil {
		regionPart = fmt.Sprintf("%d,%d,%d,%d", region.Min.X, region.Min.Y, region.Max.X, region.Max.Y)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%d|%t|%s",
		path, format, quality, width, height, enhance, regionPart)))
	return hex.EncodeToString(sum[:])
}

// Store is the conversion cache. A hit must return the identical previously
// computed variant; implementations must be safe for concurrent batch workers.
type Store interface {
	Get(ctx context.Context, key string) (Variant, bool, error)
	Set(ctx context.Context, key string, v Variant) error
	Clear(ctx context.Context) error
	Close() error
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Variant
}

// NewMemoryStore creates the in-process conversion cache.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Variant)}
}

func (s *memoryStore) Get(ctx context.Context, key string) (Variant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, v Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = v
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Variant)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
