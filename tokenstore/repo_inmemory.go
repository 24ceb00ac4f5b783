package tokenstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/hr-console/sessions"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps the keys of a single client in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]string)}
}

func (s *InMemoryStore) Save(_ context.Context, session sessions.Session) error {
	values, err := encodeRecord(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		if v == "" {
			delete(s.values, k)
			continue
		}
		s.values[k] = v
	}
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.RLock()
	values := make(map[string]string, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	s.mu.RUnlock()

	return decodeRecord(values)
}

func (s *InMemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range Keys {
		delete(s.values, k)
	}
}

// Put writes a raw value, as another client sharing the storage would.
func (s *InMemoryStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a raw value.
func (s *InMemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// NewInMemoryProvider returns a Provider that keeps one InMemoryStore per client.
func NewInMemoryProvider() Provider {
	var (
		mu     sync.Mutex
		stores = make(map[string]*InMemoryStore)
	)
	return func(clientID string) Store {
		mu.Lock()
		defer mu.Unlock()
		if s, ok := stores[clientID]; ok {
			return s
		}
		s := NewInMemoryStore()
		stores[clientID] = s
		return s
	}
}
