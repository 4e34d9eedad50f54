package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

// NewMemoryStore keeps documents in process memory. Contents are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{docs: make(map[string]Document), now: time.Now}
}

func (s *memoryStore) Set(ctx context.Context, path string, v any) error {
	if !validPath(path) {
		return fmt.Errorf("invalid document path %q", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	d, ok := s.docs[path]
	if !ok {
		d = Document{Path: path, CreatedAt: now}
	}
	d.Data = data
	d.UpdatedAt = now
	s.docs[path] = d
	return nil
}

func (s *memoryStore) Get(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	d, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return d.Decode(v)
}

func (s *memoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Document{}
	for path, d := range s.docs {
		if c, _ := split(path); c == collection {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *memoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}
