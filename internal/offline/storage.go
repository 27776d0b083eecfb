package offline

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

// Entry is one stored response.
type Entry struct {
	URL    string      `json:"url"`
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Storage is a set of named caches, each mapping a URL to a response.
type Storage interface {
	// Put stores entries under name in one step: either all of them become
	// visible or none do.
	Put(ctx context.Context, name string, entries []Entry) error
	// Match looks key up across every cache.
	Match(ctx context.Context, key string) (*Entry, bool, error)
	// Names lists the existing caches.
	Names(ctx context.Context) ([]string, error)
	// Keys lists the URLs stored under name.
	Keys(ctx context.Context, name string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// MemoryStorage keeps caches in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	caches map[string]map[string]Entry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]map[string]Entry)}
}

func (s *MemoryStorage) Put(_ context.Context, name string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, ok := s.caches[name]
	if !ok {
		cache = make(map[string]Entry, len(entries))
		s.caches[name] = cache
	}
	for _, e := range entries {
		cache[e.URL] = e
	}
	return nil
}

func (s *MemoryStorage) Match(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.sortedNames() {
		if e, ok := s.caches[name][key]; ok {
			return &e, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStorage) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedNames(), nil
}

func (s *MemoryStorage) Keys(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.caches[name]))
	for k := range s.caches[name] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.caches, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) sortedNames() []string {
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
