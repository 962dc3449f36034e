package port

import (
	"context"
	"io"
)

// FileSystem defines the local file operations used by the downloader
type FileSystem interface {
	// Stat returns the size of the file at path and whether it exists
	Stat(path string) (size int64, exists bool, err error)

	// Create creates or truncates the file for a fresh download
	Create(path string) (io.WriteCloser, error)

	// OpenAppend opens the file for writing after its current end
	OpenAppend(path string) (io.WriteCloser, error)

	// Delete removes the file; a missing file is not an error
	Delete(path string) error

	// HashFile streams the file through the content hash
	// Returns: hash sum, bytes hashed, error
	HashFile(ctx context.Context, path string) ([]byte, int64, error)
}

// SpaceChecker reports free disk space
type SpaceChecker interface {
	// FreeSpace returns the bytes available on the volume holding path
	FreeSpace(path string) (uint64, error)
}
