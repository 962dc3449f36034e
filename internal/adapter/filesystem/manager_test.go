package filesystem

import (
	"bytes"
	"context"
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestManager_Stat(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	size, exists, err := m.Stat(filepath.Join(dir, "missing"))
	if err != nil || exists || size != 0 {
		t.Errorf("Stat(missing) = %d, %v, %v; want 0, false, nil", size, exists, err)
	}

	path := filepath.Join(dir, "file")
	writeFile(t, path, []byte("hello"))

	size, exists, err = m.Stat(path)
	if err != nil || !exists || size != 5 {
		t.Errorf("Stat(file) = %d, %v, %v; want 5, true, nil", size, exists, err)
	}

	if _, _, err := m.Stat(dir); err == nil {
		t.Error("Stat(dir) should fail")
	}
}

func TestManager_CreateTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file")
	m := NewManager()

	w, err := m.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	w.Write([]byte("first content"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w, err = m.Create(path)
	if err != nil {
		t.Fatalf("Create() again error = %v", err)
	}
	w.Write([]byte("new"))
	w.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestManager_OpenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, []byte("part1-"))
	m := NewManager()

	w, err := m.OpenAppend(path)
	if err != nil {
		t.Fatalf("OpenAppend() error = %v", err)
	}
	w.Write([]byte("part2"))
	w.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "part1-part2" {
		t.Errorf("content = %q, want %q", got, "part1-part2")
	}
}

func TestManager_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, []byte("x"))
	m := NewManager()

	if err := m.Delete(path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}
	if err := m.Delete(path); err != nil {
		t.Errorf("Delete() of missing file error = %v, want nil", err)
	}
}

func TestManager_HashFile(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 1000)
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, data)

	// Small buffer forces many reads
	m := NewManagerWithBufferSize(7)
	sum, n, err := m.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	want := md5.Sum(data)
	if !bytes.Equal(sum, want[:]) {
		t.Errorf("HashFile() = %x, want %x", sum, want)
	}
	if n != int64(len(data)) {
		t.Errorf("bytes hashed = %d, want %d", n, len(data))
	}
}

func TestManager_HashFileCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, []byte("data"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := NewManager().HashFile(ctx, path); err != context.Canceled {
		t.Errorf("HashFile() error = %v, want context.Canceled", err)
	}
}

func TestManager_HashFileMissing(t *testing.T) {
	if _, _, err := NewManager().HashFile(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("HashFile() on missing file should fail")
	}
}

func TestManager_FreeSpace(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	free, err := m.FreeSpace(filepath.Join(dir, "not", "yet", "created", "file"))
	if err != nil {
		t.Fatalf("FreeSpace() error = %v", err)
	}
	if free == 0 {
		t.Error("FreeSpace() = 0, want some space on the temp volume")
	}
}
