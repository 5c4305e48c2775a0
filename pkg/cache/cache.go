// Package cache implements a page-aligned buffer cache between a
// byte-addressed client and a page-oriented storage backend. Requests at
// arbitrary offsets are split into page-aligned segments; hot pages stay
// resident under a bounded LRU or FIFO replacement policy, and everything
// the cache accepts is eventually visible at the backend.
package cache

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cobaltdb/pagebuf/pkg/backend"
)

// AddrUndef is the undefined address sentinel; requests at it are rejected.
const AddrUndef = ^uint64(0)

// Cache is a bounded page cache over one backend handle. It is not safe for
// concurrent use; operations on a handle must be serialized by the caller.
type Cache struct {
	cfg Config
	be  backend.Backend
	log logrus.FieldLogger

	table *hashTable
	repl  replaceList

	pageSize uint64
	npages   int
	ndirty   int

	// End-of-allocation as seen above the cache and as forwarded below;
	// eoaDown is eoaUp rounded up to a page boundary.
	eoaUp   uint64
	eoaDown uint64

	stats Stats
}

// Open validates the configuration and builds a cache over cfg.Backend.
// The backend handle must already be open; Close closes it.
func Open(cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:      *cfg,
		be:       cfg.Backend,
		log:      cfg.logger(),
		table:    newHashTable(cfg.NumBuckets, cfg.PageSize),
		repl:     replaceList{policy: cfg.Policy},
		pageSize: cfg.PageSize,
	}

	c.log.WithFields(logrus.Fields{
		"page_size": cfg.PageSize,
		"max_pages": cfg.MaxPages,
		"policy":    cfg.Policy.String(),
	}).Debug("cache opened")
	return c, nil
}

// request is a client (addr, size) split against page boundaries: at most
// one unaligned head, a run of full middle pages, and at most one aligned
// partial tail.
type request struct {
	headPage uint64 // page address of the head segment
	headOff  uint64 // offset of the first byte within the head page
	headLen  uint64
	midBase  uint64 // address of the first middle page
	midPages uint64
	tailPage uint64
	tailLen  uint64
}

func (c *Cache) split(addr, size uint64) request {
	p := c.pageSize
	var r request
	rem := size
	pos := addr

	if off := addr % p; off != 0 {
		r.headPage = addr - off
		r.headOff = off
		r.headLen = p - off
		if r.headLen > rem {
			r.headLen = rem
		}
		rem -= r.headLen
		pos += r.headLen
	}

	r.midBase = pos
	r.midPages = rem / p
	rem -= r.midPages * p
	pos += r.midPages * p

	if rem > 0 {
		r.tailPage = pos
		r.tailLen = rem
	}

	if r.headLen+r.midPages*p+r.tailLen != size {
		panic("cache: request split does not cover the request")
	}
	return r
}

func (c *Cache) checkRequest(addr, size uint64) error {
	if addr == AddrUndef {
		return ErrAddrUndefined
	}
	if size > AddrUndef-addr {
		return fmt.Errorf("%w: %d bytes at %d", ErrOverflow, size, addr)
	}
	return nil
}

// ReadAt fills p with the len(p) bytes at addr. Head and tail segments go
// through the cache, loading their pages on a miss. Middle pages already
// resident are served from their buffers; runs of absent middle pages are
// coalesced into one contiguous backend read straight into p, without
// populating the cache.
func (c *Cache) ReadAt(typ backend.MemType, addr uint64, p []byte) error {
	size := uint64(len(p))
	if err := c.checkRequest(addr, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	r := c.split(addr, size)
	ps := c.pageSize

	if r.headLen > 0 {
		if err := c.readPartial(typ, r.headPage, r.headOff, p[:r.headLen]); err != nil {
			return err
		}
	}

	midOff := r.headLen
	runStart := int64(-1)
	flushRun := func(end uint64) error {
		if runStart < 0 {
			return nil
		}
		start := uint64(runStart)
		runStart = -1
		dst := p[midOff+start*ps : midOff+end*ps]
		if err := c.backendRead(typ, r.midBase+start*ps, dst); err != nil {
			return err
		}
		c.stats.BypassReads++
		c.stats.BypassReadBytes += uint64(len(dst))
		return nil
	}
	for i := uint64(0); i < r.midPages; i++ {
		h := c.lookup(r.midBase + i*ps)
		if h == nil {
			// Absent page: the coalescing window opens or extends.
			if runStart < 0 {
				runStart = int64(i)
			}
			continue
		}
		// Present page ends the window and is served from its buffer.
		if err := flushRun(i); err != nil {
			return err
		}
		c.copyOut(h, 0, p[midOff+i*ps:midOff+(i+1)*ps])
	}
	if err := flushRun(r.midPages); err != nil {
		return err
	}

	if r.tailLen > 0 {
		if err := c.readPartial(typ, r.tailPage, 0, p[size-r.tailLen:]); err != nil {
			return err
		}
	}
	return nil
}

// WriteAt stores p at addr. Head and tail segments read-modify-write their
// pages through the cache and mark them dirty. Middle pages bypass the
// cache: any resident copy is invalidated, then all middle pages go to the
// backend in one contiguous write.
func (c *Cache) WriteAt(typ backend.MemType, addr uint64, p []byte) error {
	size := uint64(len(p))
	if err := c.checkRequest(addr, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	r := c.split(addr, size)
	ps := c.pageSize

	if r.headLen > 0 {
		if err := c.writePartial(typ, r.headPage, r.headOff, p[:r.headLen]); err != nil {
			return err
		}
	}

	if r.midPages > 0 {
		for i := uint64(0); i < r.midPages; i++ {
			if h := c.lookup(r.midBase + i*ps); h != nil {
				c.invalidate(h)
			}
		}
		src := p[r.headLen : r.headLen+r.midPages*ps]
		if _, err := c.be.WriteAt(typ, src, r.midBase); err != nil {
			return fmt.Errorf("backend write at %d failed: %w", r.midBase, err)
		}
		c.stats.BypassWrites++
		c.stats.BypassWriteBytes += uint64(len(src))
	}

	if r.tailLen > 0 {
		if err := c.writePartial(typ, r.tailPage, 0, p[size-r.tailLen:]); err != nil {
			return err
		}
	}
	return nil
}

// readPartial serves a head or tail segment from the page's buffer, loading
// the page on a miss
func (c *Cache) readPartial(typ backend.MemType, pageAddr, off uint64, dst []byte) error {
	h := c.lookup(pageAddr)
	if h == nil {
		var err error
		if h, err = c.loadPage(typ, pageAddr); err != nil {
			return err
		}
	}
	c.copyOut(h, off, dst)
	return nil
}

// writePartial read-modify-writes a head or tail segment into the page's
// buffer and marks the page dirty
func (c *Cache) writePartial(typ backend.MemType, pageAddr, off uint64, src []byte) error {
	h := c.lookup(pageAddr)
	if h == nil {
		var err error
		if h, err = c.loadPage(typ, pageAddr); err != nil {
			return err
		}
	}
	h.check()
	h.flags |= flagBusy | flagWrite
	copy(h.buf[off:off+uint64(len(src))], src)
	if !h.flags.has(flagDirty) {
		h.flags |= flagDirty
		c.ndirty++
	}
	c.repl.touch(h)
	h.flags &^= flagBusy | flagWrite
	c.stats.CachedWriteBytes += uint64(len(src))
	return nil
}

// copyOut copies a slice of a resident page into the client buffer. BUSY is
// held only for the duration of the copy.
func (c *Cache) copyOut(h *pageHeader, off uint64, dst []byte) {
	h.check()
	h.flags |= flagBusy | flagRead
	copy(dst, h.buf[off:off+uint64(len(dst))])
	c.repl.touch(h)
	h.flags &^= flagBusy | flagRead
	c.stats.CachedReadBytes += uint64(len(dst))
}

// backendRead fills dst from the backend, zero-filling anything past its
// end-of-file
func (c *Cache) backendRead(typ backend.MemType, addr uint64, dst []byte) error {
	n, err := c.be.ReadAt(typ, dst, addr)
	if err != nil && err != io.EOF {
		return fmt.Errorf("backend read at %d failed: %w", addr, err)
	}
	clear(dst[n:])
	return nil
}

// Flush writes every dirty valid page through to the backend, walking the
// replacement list from the tail (least recently touched first), then
// forwards a flush to the backend.
func (c *Cache) Flush() error {
	for h := c.repl.tail; h != nil; h = h.replPrev {
		h.check()
		if h.flags.has(flagInvalid) || !h.flags.has(flagDirty) {
			continue
		}
		if err := c.flushPage(h); err != nil {
			return err
		}
	}
	if c.ndirty != 0 {
		return fmt.Errorf("%w: %d dirty pages after flush", ErrInconsistent, c.ndirty)
	}
	if err := c.be.Flush(); err != nil {
		return fmt.Errorf("backend flush failed: %w", err)
	}
	return nil
}

// SetEOA records addr as the end-of-allocation and forwards it to the
// backend rounded up to the next page boundary. Resident pages above a
// lowered mark are left alone; truncation of a partially cached page is the
// caller's problem.
func (c *Cache) SetEOA(addr uint64) error {
	if addr == AddrUndef {
		return ErrAddrUndefined
	}
	down := addr
	if rem := addr % c.pageSize; rem != 0 {
		down = addr + (c.pageSize - rem)
	}
	if err := c.be.SetEOA(down); err != nil {
		return fmt.Errorf("backend set-eoa failed: %w", err)
	}
	c.eoaUp = addr
	c.eoaDown = down
	return nil
}

// GetEOA cross-checks the backend's end-of-allocation against the value the
// cache last forwarded down, then returns the client-visible one.
func (c *Cache) GetEOA() (uint64, error) {
	below, err := c.be.GetEOA()
	if err != nil {
		return 0, fmt.Errorf("backend get-eoa failed: %w", err)
	}
	if below != c.eoaDown {
		return 0, fmt.Errorf("%w: backend eoa %d, expected %d", ErrInconsistent, below, c.eoaDown)
	}
	return c.eoaUp, nil
}

// GetEOF returns the backend's end-of-file unchanged
func (c *Cache) GetEOF() (uint64, error) {
	eof, err := c.be.GetEOF()
	if err != nil {
		return 0, fmt.Errorf("backend get-eof failed: %w", err)
	}
	return eof, nil
}

// Truncate forwards a truncation to the backend
func (c *Cache) Truncate(size uint64) error {
	if err := c.be.Truncate(size); err != nil {
		return fmt.Errorf("backend truncate failed: %w", err)
	}
	return nil
}

// Lock forwards the file lock to the backend; the cache holds no locks of
// its own
func (c *Cache) Lock(exclusive bool) error {
	return c.be.Lock(exclusive)
}

// Unlock forwards the file unlock to the backend
func (c *Cache) Unlock() error {
	return c.be.Unlock()
}

// Delete forwards a delete to the backend
func (c *Cache) Delete() error {
	return c.be.Delete()
}

// Ctl forwards an opaque tuning or diagnostic command to the backend
func (c *Cache) Ctl(op uint64, arg interface{}) error {
	return c.be.Ctl(op, arg)
}

// Close flushes the cache, tears down every header, and closes the backend.
// A failed flush leaves the cache intact; a failed backend close leaves it
// empty, its pages already torn down. Either way close can be retried.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}

	for h := c.repl.tail; h != nil; {
		prev := h.replPrev
		if !h.flags.has(flagInvalid) {
			c.table.remove(h)
		}
		c.repl.remove(h)
		h.destroy()
		c.npages--
		h = prev
	}
	if c.npages != 0 || !c.table.empty() {
		return fmt.Errorf("%w: resident pages remain after teardown", ErrInconsistent)
	}

	if err := c.be.Close(); err != nil {
		return fmt.Errorf("backend close failed: %w", err)
	}
	c.log.Debug("cache closed")
	return nil
}

// PageCount returns the number of resident pages
func (c *Cache) PageCount() int {
	return c.npages
}

// DirtyCount returns the number of resident dirty pages
func (c *Cache) DirtyCount() int {
	return c.ndirty
}
