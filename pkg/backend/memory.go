package backend

import (
	"fmt"
	"io"
	"sync"
)

// Memory implements the Backend interface using in-memory storage
type Memory struct {
	data    []byte
	eoa     uint64
	locked  bool
	deleted bool
	mu      sync.RWMutex
}

// NewMemory creates a new in-memory storage provider
func NewMemory() *Memory {
	return &Memory{
		data: make([]byte, 0),
	}
}

// ReadAt reads data from memory at the specified offset
func (m *Memory) ReadAt(typ MemType, buf []byte, offset uint64) (int, error) {
	_ = typ

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.deleted {
		return 0, ErrDeleted
	}

	if offset >= uint64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(buf, m.data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes data to memory at the specified offset, growing as needed
func (m *Memory) WriteAt(typ MemType, buf []byte, offset uint64) (int, error) {
	_ = typ

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return 0, ErrDeleted
	}

	end := offset + uint64(len(buf))
	if end > uint64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}

	n := copy(m.data[offset:end], buf)
	if end > m.eoa {
		m.eoa = end
	}
	return n, nil
}

// GetEOA returns the current end-of-allocation address
func (m *Memory) GetEOA() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.deleted {
		return 0, ErrDeleted
	}
	return m.eoa, nil
}

// SetEOA records a new end-of-allocation address
func (m *Memory) SetEOA(addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return ErrDeleted
	}
	m.eoa = addr
	return nil
}

// GetEOF returns the size of the in-memory store
func (m *Memory) GetEOF() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.deleted {
		return 0, ErrDeleted
	}
	return uint64(len(m.data)), nil
}

// Flush is a no-op for memory storage
func (m *Memory) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.deleted {
		return ErrDeleted
	}
	return nil
}

// Truncate resizes the in-memory store
func (m *Memory) Truncate(size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return ErrDeleted
	}

	if size <= uint64(len(m.data)) {
		m.data = m.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, m.data)
		m.data = grown
	}
	if m.eoa > size {
		m.eoa = size
	}
	return nil
}

// Lock acquires the in-process lock
func (m *Memory) Lock(exclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return ErrDeleted
	}
	_ = exclusive
	m.locked = true
	return nil
}

// Unlock releases the in-process lock
func (m *Memory) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return ErrDeleted
	}
	if !m.locked {
		return ErrNotLocked
	}
	m.locked = false
	return nil
}

// Delete discards the in-memory store
func (m *Memory) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleted {
		return ErrDeleted
	}
	m.data = nil
	m.eoa = 0
	m.deleted = true
	return nil
}

// Ctl forwards an opaque tuning command; the memory provider recognizes none
func (m *Memory) Ctl(op uint64, arg interface{}) error {
	_ = arg
	return fmt.Errorf("ctl op %d: %w", op, ErrUnsupportedCtl)
}

// Close is a no-op; the store stays readable and writable afterwards
func (m *Memory) Close() error {
	return nil
}
