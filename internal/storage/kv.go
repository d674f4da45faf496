package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"sync"

	"taskcal/internal/config"
)

// KV is a string-keyed, string-valued store with the semantics of browser
// local storage. SetMany writes all entries or none.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	SetMany(entries map[string]string) error
	Close() error
}

// MemoryKV keeps entries in memory only.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) SetMany(entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.data, entries)
	return nil
}

func (m *MemoryKV) Close() error { return nil }

// FileKV persists every entry in a single JSON object on disk. Each
// SetMany rewrites the file atomically.
type FileKV struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// OpenFile loads path if it exists; a missing file is an empty store.
func OpenFile(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("data path is empty")
	}
	f := &FileKV{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, err
	}
	if f.data == nil {
		f.data = map[string]string{}
	}
	return f, nil
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileKV) SetMany(entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := maps.Clone(f.data)
	maps.Copy(next, entries)

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(f.path, raw, ".taskcal-data-*.tmp"); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *FileKV) Close() error { return nil }
