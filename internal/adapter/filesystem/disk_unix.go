//go:build !windows

package filesystem

import (
	"fmt"
	"syscall"
)

// FreeSpace returns the bytes available to this process on the volume that
// holds path. path need not exist yet; its nearest existing parent is used.
func (m *Manager) FreeSpace(path string) (uint64, error) {
	dir := existingParent(path)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to get disk stats for %s: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
