package cache

// Stats is a snapshot of the cache counters. The cache is single-threaded
// per handle, so the counters carry no atomicity.
type Stats struct {
	Hits          uint64 `msgpack:"hits"`
	Misses        uint64 `msgpack:"misses"`
	Loads         uint64 `msgpack:"loads"`
	Evictions     uint64 `msgpack:"evictions"`
	Flushes       uint64 `msgpack:"flushes"`
	Invalidations uint64 `msgpack:"invalidations"`

	// Searches and SearchDepth accumulate hash probe counts across hits
	// and misses; MaxBucketDepth is the deepest any bucket has been.
	Searches       uint64 `msgpack:"searches"`
	SearchDepth    uint64 `msgpack:"search_depth"`
	MaxBucketDepth int    `msgpack:"max_bucket_depth"`

	// Bypass counters cover middle-segment I/O that moves straight between
	// the client buffer and the backend.
	BypassReads  uint64 `msgpack:"bypass_reads"`
	BypassWrites uint64 `msgpack:"bypass_writes"`

	CachedReadBytes  uint64 `msgpack:"cached_read_bytes"`
	CachedWriteBytes uint64 `msgpack:"cached_write_bytes"`
	BypassReadBytes  uint64 `msgpack:"bypass_read_bytes"`
	BypassWriteBytes uint64 `msgpack:"bypass_write_bytes"`

	ResidentPages int `msgpack:"resident_pages"`
	DirtyPages    int `msgpack:"dirty_pages"`
}

// HitRate returns the fraction of page lookups served by a resident page
func (s *Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() Stats {
	s := c.stats
	s.MaxBucketDepth = c.table.maxDepth
	s.ResidentPages = c.npages
	s.DirtyPages = c.ndirty
	return s
}
