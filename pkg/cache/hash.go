package cache

import (
	"math/bits"
)

// hashTable indexes resident valid pages by page address. Buckets are
// doubly linked lists of headers; bucket order is insertion order (newest
// first) and carries no meaning. Both the bucket count and the page size
// are powers of two, so the hash is a shift plus a mask.
type hashTable struct {
	buckets []*pageHeader
	lens    []int
	shift   uint
	mask    uint32

	maxDepth int
}

func newHashTable(numBuckets int, pageSize uint64) *hashTable {
	return &hashTable{
		buckets: make([]*pageHeader, numBuckets),
		lens:    make([]int, numBuckets),
		shift:   uint(bits.TrailingZeros64(pageSize)),
		mask:    uint32(numBuckets - 1),
	}
}

// code maps a page address to its bucket index
func (t *hashTable) code(addr uint64) uint32 {
	return uint32(addr>>t.shift) & t.mask
}

// insert prepends a header to its bucket
func (t *hashTable) insert(h *pageHeader) {
	h.check()

	head := t.buckets[h.hash]
	h.hashPrev = nil
	h.hashNext = head
	if head != nil {
		head.hashPrev = h
	}
	t.buckets[h.hash] = h

	t.lens[h.hash]++
	if t.lens[h.hash] > t.maxDepth {
		t.maxDepth = t.lens[h.hash]
	}
}

// remove unlinks a header from its bucket
func (t *hashTable) remove(h *pageHeader) {
	h.check()

	if h.hashPrev != nil {
		h.hashPrev.hashNext = h.hashNext
	} else {
		t.buckets[h.hash] = h.hashNext
	}
	if h.hashNext != nil {
		h.hashNext.hashPrev = h.hashPrev
	}
	h.hashPrev, h.hashNext = nil, nil

	t.lens[h.hash]--
}

// search walks the bucket for addr and returns the matching header, or nil.
// The second result is the number of headers examined, recorded for both
// hits and misses.
func (t *hashTable) search(addr uint64) (*pageHeader, int) {
	depth := 0
	for h := t.buckets[t.code(addr)]; h != nil; h = h.hashNext {
		h.check()
		depth++
		if h.addr == addr {
			return h, depth
		}
	}
	return nil, depth
}

// empty reports whether every bucket is clear
func (t *hashTable) empty() bool {
	for i, b := range t.buckets {
		if b != nil || t.lens[i] != 0 {
			return false
		}
	}
	return true
}
