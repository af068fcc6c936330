package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// FileStore persists a namespace as a JSON document at <dir>/<namespace>.json.
// Writes replace the file atomically so a crash never leaves a partial edit.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore for namespace under dir.
func NewFileStore(dir, namespace string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential directory cannot be empty")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, namespace+".json")}, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the namespace. A missing file is an empty namespace.
func (s *FileStore) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Apply reads the current document, applies the edit and writes it back.
func (s *FileStore) Apply(_ context.Context, edit Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(edit.applyTo(current), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	// The credential file holds tokens; keep it private to the user.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	values := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode credentials at %s: %w", s.path, err)
	}
	return values, nil
}
