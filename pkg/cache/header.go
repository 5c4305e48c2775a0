package cache

import (
	"github.com/cobaltdb/pagebuf/pkg/backend"
)

// headerMagic is the structural sanity tag carried by every live page
// header. It is zeroed when the header is destroyed (at close, or when its
// page load fails), so a stale
// reference trips the check instead of corrupting a list walk.
const headerMagic uint32 = 0x50674864

// pageHeader describes one resident page: its address, flag bitset, the
// page-sized buffer, and two pairs of links. A header is a node of the
// replacement list always, and of its hash bucket whenever INVALID is clear.
type pageHeader struct {
	magic   uint32
	addr    uint64
	hash    uint32
	flags   pageFlag
	memType backend.MemType
	buf     []byte

	hashPrev, hashNext *pageHeader
	replPrev, replNext *pageHeader
}

// newPageHeader allocates a header together with its page buffer
func newPageHeader(pageSize uint64) *pageHeader {
	return &pageHeader{
		magic: headerMagic,
		buf:   make([]byte, pageSize),
	}
}

// check validates the sanity tag and the flag exclusions; every structure
// operation goes through it
func (h *pageHeader) check() {
	if h.magic != headerMagic {
		panic("cache: page header sanity tag mismatch")
	}
	if h.flags.has(flagInvalid) && h.flags.has(flagDirty) {
		panic("cache: page header is both invalid and dirty")
	}
	if h.flags.has(flagRead) && h.flags.has(flagWrite) {
		panic("cache: page header is both read and write busy")
	}
}

// reset re-keys a recycled header to a new page
func (h *pageHeader) reset(addr uint64, hash uint32, typ backend.MemType) {
	h.check()
	h.addr = addr
	h.hash = hash
	h.flags = 0
	h.memType = typ
}

// destroy tears the header down at cache close, or after a failed page load
func (h *pageHeader) destroy() {
	h.check()
	h.magic = 0
	h.buf = nil
	h.hashPrev, h.hashNext = nil, nil
	h.replPrev, h.replNext = nil, nil
}
