package backend

import (
	"errors"
	"io"
	"os"
	"testing"
)

func TestDiskBackend(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer be.Close()

	// Test write
	data := []byte("Hello, pagebuf!")
	n, err := be.WriteAt(MemDefault, data, 0)
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	// Test read
	buf := make([]byte, len(data))
	n, err = be.ReadAt(MemDefault, buf, 0)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to read %d bytes, read %d", len(data), n)
	}
	if string(buf) != string(data) {
		t.Fatalf("Expected %q, got %q", string(data), string(buf))
	}

	// Test EOF
	eof, err := be.GetEOF()
	if err != nil {
		t.Fatalf("Failed to get EOF: %v", err)
	}
	if eof != uint64(len(data)) {
		t.Fatalf("Expected EOF %d, got %d", len(data), eof)
	}

	// Test truncate
	if err := be.Truncate(100); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}
	eof, _ = be.GetEOF()
	if eof != 100 {
		t.Fatalf("Expected EOF 100 after truncate, got %d", eof)
	}
}

func TestDiskBackendEOA(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer be.Close()

	eoa, err := be.GetEOA()
	if err != nil {
		t.Fatalf("Failed to get EOA: %v", err)
	}
	if eoa != 0 {
		t.Fatalf("Expected EOA 0 on a fresh file, got %d", eoa)
	}

	if err := be.SetEOA(8192); err != nil {
		t.Fatalf("Failed to set EOA: %v", err)
	}
	eoa, _ = be.GetEOA()
	if eoa != 8192 {
		t.Fatalf("Expected EOA 8192, got %d", eoa)
	}

	// Writing past the mark grows it
	if _, err := be.WriteAt(MemDefault, make([]byte, 100), 9000); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	eoa, _ = be.GetEOA()
	if eoa != 9100 {
		t.Fatalf("Expected EOA 9100 after write, got %d", eoa)
	}
}

func TestDiskBackendShortRead(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer be.Close()

	if _, err := be.WriteAt(MemDefault, []byte("abc"), 0); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	buf := make([]byte, 10)
	n, err := be.ReadAt(MemDefault, buf, 0)
	if err != io.EOF {
		t.Fatalf("Expected io.EOF on short read, got %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 bytes, got %d", n)
	}
}

func TestDiskBackendLock(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer be.Close()

	if err := be.Unlock(); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("Expected ErrNotLocked, got %v", err)
	}
	if err := be.Lock(true); err != nil {
		t.Fatalf("Failed to lock: %v", err)
	}
	if err := be.Unlock(); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
}

func TestDiskBackendDelete(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}

	if err := be.Delete(); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(tmpFile); !os.IsNotExist(err) {
		t.Fatalf("Expected file to be removed, stat: %v", err)
	}
}

func TestDiskBackendClosed(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	if err := be.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	if _, err := be.ReadAt(MemDefault, make([]byte, 4), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed on read, got %v", err)
	}
	if _, err := be.WriteAt(MemDefault, make([]byte, 4), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed on write, got %v", err)
	}
	if err := be.Flush(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed on flush, got %v", err)
	}

	// Closing twice is fine
	if err := be.Close(); err != nil {
		t.Fatalf("Expected second close to succeed, got %v", err)
	}
}

func TestDiskBackendCtl(t *testing.T) {
	tmpFile := t.TempDir() + "/test.pb"

	be, err := OpenDisk(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open disk backend: %v", err)
	}
	defer be.Close()

	if err := be.Ctl(42, nil); !errors.Is(err, ErrUnsupportedCtl) {
		t.Fatalf("Expected ErrUnsupportedCtl, got %v", err)
	}
}

func TestMemoryBackend(t *testing.T) {
	be := NewMemory()
	defer be.Close()

	data := []byte("Hello, pagebuf!")
	n, err := be.WriteAt(MemDefault, data, 0)
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	buf := make([]byte, len(data))
	n, err = be.ReadAt(MemDefault, buf, 0)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if n != len(buf) || string(buf) != string(data) {
		t.Fatalf("Expected %q, got %q (%d bytes)", string(data), string(buf), n)
	}
}

func TestMemoryBackendGrowth(t *testing.T) {
	be := NewMemory()
	defer be.Close()

	// A write past the end grows the store with a zero gap
	if _, err := be.WriteAt(MemDefault, []byte("xyz"), 100); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	eof, _ := be.GetEOF()
	if eof != 103 {
		t.Fatalf("Expected EOF 103, got %d", eof)
	}

	buf := make([]byte, 4)
	if _, err := be.ReadAt(MemDefault, buf, 50); err != nil {
		t.Fatalf("Failed to read gap: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("Expected zero byte at %d, got %d", i, b)
		}
	}
}

func TestMemoryBackendShortRead(t *testing.T) {
	be := NewMemory()
	defer be.Close()

	if _, err := be.WriteAt(MemDefault, []byte("abc"), 0); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	buf := make([]byte, 10)
	n, err := be.ReadAt(MemDefault, buf, 0)
	if err != io.EOF || n != 3 {
		t.Fatalf("Expected (3, io.EOF), got (%d, %v)", n, err)
	}

	// Entirely past the end
	n, err = be.ReadAt(MemDefault, buf, 1000)
	if err != io.EOF || n != 0 {
		t.Fatalf("Expected (0, io.EOF), got (%d, %v)", n, err)
	}
}

func TestMemoryBackendTruncateEOA(t *testing.T) {
	be := NewMemory()
	defer be.Close()

	if _, err := be.WriteAt(MemDefault, make([]byte, 200), 0); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := be.Truncate(50); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}

	eof, _ := be.GetEOF()
	eoa, _ := be.GetEOA()
	if eof != 50 || eoa != 50 {
		t.Fatalf("Expected EOF/EOA 50/50, got %d/%d", eof, eoa)
	}
}

func TestMemoryBackendDelete(t *testing.T) {
	be := NewMemory()

	if err := be.Delete(); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := be.ReadAt(MemDefault, make([]byte, 4), 0); !errors.Is(err, ErrDeleted) {
		t.Fatalf("Expected ErrDeleted, got %v", err)
	}
}
