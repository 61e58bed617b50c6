package loader

import (
	"io/fs"
	"sync"
	"time"
)

// MemFS is an in-memory file system for tests.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemFS creates an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// AddFile creates or replaces a file.
func (m *MemFS) AddFile(path string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

// Open is not supported.
func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

// ReadFile returns the file's content.
func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

// Stat reports whether the file exists.
func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }
