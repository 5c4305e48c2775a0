package cache

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cobaltdb/pagebuf/pkg/backend"
)

// lookup finds the resident valid page at addr, recording search statistics
// for both hits and misses
func (c *Cache) lookup(addr uint64) *pageHeader {
	h, depth := c.table.search(addr)
	c.stats.Searches++
	c.stats.SearchDepth += uint64(depth)
	if h != nil {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return h
}

// loadPage brings the page at addr into the cache: a fresh header while the
// pool is below its limit, a recycled eviction victim afterwards. The page
// contents are read from the backend and the header is inserted into both
// the hash table and the replacement list with all flags clear.
func (c *Cache) loadPage(typ backend.MemType, addr uint64) (*pageHeader, error) {
	var h *pageHeader
	if c.npages < c.cfg.MaxPages {
		h = newPageHeader(c.pageSize)
	} else {
		victim, err := c.evict()
		if err != nil {
			return nil, err
		}
		h = victim
	}
	h.reset(addr, c.table.code(addr), typ)

	n, err := c.be.ReadAt(typ, h.buf, addr)
	if err != nil && err != io.EOF {
		// The header is on neither list; drop it rather than re-insert a
		// page with unknown contents.
		h.destroy()
		return nil, fmt.Errorf("failed to load page at %d: %w", addr, err)
	}
	// A page past the backend's end-of-file reads short; the rest is zeros.
	clear(h.buf[n:])

	c.repl.prepend(h)
	c.table.insert(h)
	c.npages++
	c.stats.Loads++
	return h, nil
}

// evict selects and detaches the replacement-list victim: the first non-busy
// header walking from the tail. A dirty victim is flushed before it is
// recycled.
func (c *Cache) evict() (*pageHeader, error) {
	for h := c.repl.tail; h != nil; h = h.replPrev {
		h.check()
		if h.flags.has(flagBusy) {
			continue
		}
		if h.flags.has(flagDirty) {
			if err := c.flushPage(h); err != nil {
				return nil, err
			}
		}
		valid := !h.flags.has(flagInvalid)
		c.repl.remove(h)
		if valid {
			c.table.remove(h)
		}
		c.npages--
		c.stats.Evictions++
		c.log.WithFields(logrus.Fields{
			"addr":  h.addr,
			"valid": valid,
		}).Debug("evicted page")
		return h, nil
	}
	return nil, ErrExhausted
}

// flushPage writes one dirty page through to the backend. On failure the
// DIRTY flag stays set so a later flush can retry.
func (c *Cache) flushPage(h *pageHeader) error {
	h.check()
	if _, err := c.be.WriteAt(h.memType, h.buf, h.addr); err != nil {
		c.log.WithError(err).WithField("addr", h.addr).Error("page flush failed")
		return fmt.Errorf("failed to flush page at %d: %w", h.addr, err)
	}
	h.flags &^= flagDirty
	c.ndirty--
	c.stats.Flushes++
	return nil
}

// invalidate drops a valid page from the index: DIRTY is cleared without a
// writeback, the header leaves its hash bucket, and it parks at the
// replacement-list tail with only INVALID set.
func (c *Cache) invalidate(h *pageHeader) {
	h.check()
	if h.flags.has(flagInvalid) {
		return
	}
	if h.flags.has(flagDirty) {
		h.flags &^= flagDirty
		c.ndirty--
	}
	c.table.remove(h)
	h.flags = flagInvalid
	c.repl.moveToTail(h)
	c.stats.Invalidations++
}
