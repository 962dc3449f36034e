package filesystem

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vertextoedge/reliable-downloader/internal/port"
	"go.uber.org/multierr"
)

const defaultBufferSize = 64 * 1024

// Manager handles local filesystem operations
type Manager struct {
	bufferSize int
	newHash    func() hash.Hash
}

// Ensure Manager implements port.FileSystem and port.SpaceChecker
var (
	_ port.FileSystem   = (*Manager)(nil)
	_ port.SpaceChecker = (*Manager)(nil)
)

// NewManager creates a new filesystem manager hashing with MD5
func NewManager() *Manager {
	return NewManagerWithBufferSize(defaultBufferSize)
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Manager{
		bufferSize: bufferSize,
		newHash:    md5.New,
	}
}

// Stat returns the size of the file and whether it exists
func (m *Manager) Stat(path string) (int64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if info.IsDir() {
		return 0, false, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), true, nil
}

// Create creates or truncates the file for a fresh download
func (m *Manager) Create(path string) (io.WriteCloser, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &syncedFile{File: f}, nil
}

// OpenAppend opens the file for a resumed download
func (m *Manager) OpenAppend(path string) (io.WriteCloser, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for resume: %w", err)
	}
	return &syncedFile{File: f}, nil
}

// Delete removes a file
func (m *Manager) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// HashFile streams the file through the content hash without loading it
// into memory. Cancellation is checked between buffered reads.
func (m *Manager) HashFile(ctx context.Context, path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := m.newHash()
	buf := make([]byte, m.bufferSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}

		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, fmt.Errorf("failed to read file for hashing: %w", err)
		}
	}

	return h.Sum(nil), total, nil
}

// ensureDir ensures the directory for a file path exists
func ensureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// existingParent walks up from path to the closest directory that exists
func existingParent(path string) string {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// syncedFile flushes to disk on close so a later resume sees every
// written byte
type syncedFile struct {
	*os.File
}

func (f *syncedFile) Close() error {
	return multierr.Append(f.File.Sync(), f.File.Close())
}
