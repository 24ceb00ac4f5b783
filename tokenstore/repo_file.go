package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/rs/zerolog/log"
)

var _ Store = (*FileStore)(nil)

// FileStore persists the keys as a JSON object in a single file, the
// terminal counterpart of browser local storage.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, session sessions.Session) error {
	values, err := encodeRecord(session)
	if err != nil {
		return err
	}
	for k, v := range values {
		if v == "" {
			delete(values, k)
		}
	}

	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore Save] marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("[FileStore Save] create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("[FileStore Save] create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Save] write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Save] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore Save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("[FileStore Save] rename: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	raw, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrAbsent
	}
	if err != nil {
		log.Err(err).Str("path", s.path).Msg("Failed to read session file")
		return Record{}, ErrAbsent
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		log.Warn().Err(&StorageParseError{Key: s.path, Err: err}).Msg("Ignoring session file")
		return Record{}, ErrAbsent
	}
	return decodeRecord(values)
}

func (s *FileStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Err(err).Str("path", s.path).Msg("Failed to remove session file")
	}
}

// NewFileProvider keeps each client's session in dir/<clientID>.json.
func NewFileProvider(dir string) Provider {
	var (
		mu     sync.Mutex
		stores = make(map[string]*FileStore)
	)
	return func(clientID string) Store {
		mu.Lock()
		defer mu.Unlock()
		if s, ok := stores[clientID]; ok {
			return s
		}
		s := NewFileStore(filepath.Join(dir, filepath.Base(clientID)+".json"))
		stores[clientID] = s
		return s
	}
}
