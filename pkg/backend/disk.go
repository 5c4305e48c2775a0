package backend

import (
	"fmt"
	"math"
	"os"
	"sync"
)

// Disk implements the Backend interface using file I/O
type Disk struct {
	file     *os.File
	filePath string
	eoa      uint64
	locked   bool
	mu       sync.RWMutex
}

// OpenDisk opens or creates a file-backed storage provider
func OpenDisk(path string) (*Disk, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Disk{
		file:     file,
		filePath: path,
		eoa:      uint64(stat.Size()),
	}, nil
}

// ReadAt reads data from the file at the specified offset
func (d *Disk) ReadAt(typ MemType, buf []byte, offset uint64) (int, error) {
	_ = typ
	if offset > math.MaxInt64 {
		return 0, ErrInvalidOffset
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return 0, ErrClosed
	}

	return d.file.ReadAt(buf, int64(offset))
}

// WriteAt writes data to the file at the specified offset
func (d *Disk) WriteAt(typ MemType, buf []byte, offset uint64) (int, error) {
	_ = typ
	if offset > math.MaxInt64 {
		return 0, ErrInvalidOffset
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return 0, ErrClosed
	}

	n, err := d.file.WriteAt(buf, int64(offset))
	if err != nil {
		return n, err
	}

	// Grow the allocation mark if we wrote past it
	end := offset + uint64(n)
	if end > d.eoa {
		d.eoa = end
	}

	return n, nil
}

// GetEOA returns the current end-of-allocation address
func (d *Disk) GetEOA() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return 0, ErrClosed
	}

	return d.eoa, nil
}

// SetEOA records a new end-of-allocation address
func (d *Disk) SetEOA(addr uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrClosed
	}

	d.eoa = addr
	return nil
}

// GetEOF returns the current size of the file
func (d *Disk) GetEOF() (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return 0, ErrClosed
	}

	stat, err := d.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return uint64(stat.Size()), nil
}

// Flush ensures all data is written to disk
func (d *Disk) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.file == nil {
		return ErrClosed
	}

	return d.file.Sync()
}

// Truncate resizes the file
func (d *Disk) Truncate(size uint64) error {
	if size > math.MaxInt64 {
		return ErrInvalidSize
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrClosed
	}

	if err := d.file.Truncate(int64(size)); err != nil {
		return err
	}

	if d.eoa > size {
		d.eoa = size
	}
	return nil
}

// Lock marks the file as locked; no operating-system lock is taken
func (d *Disk) Lock(exclusive bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrClosed
	}

	_ = exclusive
	d.locked = true
	return nil
}

// Unlock releases the file lock
func (d *Disk) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrClosed
	}
	if !d.locked {
		return ErrNotLocked
	}

	d.locked = false
	return nil
}

// Delete closes and removes the backing file
func (d *Disk) Delete() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrClosed
	}

	if err := d.file.Close(); err != nil {
		return err
	}
	d.file = nil

	return os.Remove(d.filePath)
}

// Ctl forwards an opaque tuning command; the disk provider recognizes none
func (d *Disk) Ctl(op uint64, arg interface{}) error {
	_ = arg
	return fmt.Errorf("ctl op %d: %w", op, ErrUnsupportedCtl)
}

// Close closes the file
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil
	return err
}
