package backend

import (
	"errors"
)

var (
	ErrInvalidOffset  = errors.New("invalid offset")
	ErrInvalidSize    = errors.New("invalid size")
	ErrClosed         = errors.New("backend is closed")
	ErrDeleted        = errors.New("backend is deleted")
	ErrNotLocked      = errors.New("backend is not locked")
	ErrUnsupportedCtl = errors.New("unsupported ctl operation")
)

// MemType is an opaque memory-type tag attached to every I/O request. The
// cache above stores and relays it; backends may use it to key their own
// type maps or ignore it entirely.
type MemType uint8

const (
	MemDefault MemType = iota
	MemSuper
	MemMeta
	MemRaw
)

// Backend defines the interface for storage providers (disk or memory).
// Offsets handed to ReadAt and WriteAt by the cache are page-aligned.
type Backend interface {
	// ReadAt reads up to len(buf) bytes from the backend at the given
	// offset. Reads extending past end-of-file return the bytes available
	// and io.EOF, matching os.File semantics.
	ReadAt(typ MemType, buf []byte, offset uint64) (int, error)

	// WriteAt writes len(buf) bytes to the backend at the given offset.
	WriteAt(typ MemType, buf []byte, offset uint64) (int, error)

	// GetEOA returns the current end-of-allocation address.
	GetEOA() (uint64, error)

	// SetEOA records a new end-of-allocation address.
	SetEOA(addr uint64) error

	// GetEOF returns the end-of-file address of the underlying store.
	GetEOF() (uint64, error)

	// Flush ensures all written data is persisted to storage.
	Flush() error

	// Truncate resizes the backend to the specified size.
	Truncate(size uint64) error

	// Lock acquires the backend's file lock, exclusive or shared.
	Lock(exclusive bool) error

	// Unlock releases the backend's file lock.
	Unlock() error

	// Delete removes the backing store. The backend is unusable afterwards.
	Delete() error

	// Ctl forwards an opaque tuning or diagnostic command.
	Ctl(op uint64, arg interface{}) error

	// Close closes the backend.
	Close() error
}
