package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/cobaltdb/pagebuf/pkg/backend"
	"github.com/cobaltdb/pagebuf/pkg/cache"
)

func main() {
	path := "./test.pagebuf"
	os.Remove(path)

	fmt.Println("=== Test: Unaligned I/O with Disk Persistence ===")

	c := openCache(path)

	// Write a pattern straddling a page boundary
	payload := make([]byte, 8000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	if err := c.WriteAt(backend.MemDefault, 100, payload); err != nil {
		log.Fatalf("Failed to write: %v", err)
	}
	fmt.Printf("\n1. WRITE: %d bytes at offset 100 (%d resident, %d dirty)\n",
		len(payload), c.PageCount(), c.DirtyCount())

	// Read it back through the cache
	got := make([]byte, len(payload))
	if err := c.ReadAt(backend.MemDefault, 100, got); err != nil {
		log.Fatalf("Failed to read: %v", err)
	}
	fmt.Printf("2. READ: round trip %v\n", verdict(bytes.Equal(got, payload)))

	// Set the allocation mark and flush everything down
	if err := c.SetEOA(8100); err != nil {
		log.Fatalf("Failed to set EOA: %v", err)
	}
	if err := c.Flush(); err != nil {
		log.Fatalf("Failed to flush: %v", err)
	}
	fmt.Printf("3. FLUSH: %d dirty pages remain\n", c.DirtyCount())

	// Close and reopen
	if err := c.Close(); err != nil {
		log.Fatalf("Failed to close: %v", err)
	}
	c = openCache(path)
	clear(got)
	if err := c.ReadAt(backend.MemDefault, 100, got); err != nil {
		log.Fatalf("Failed to read after reopen: %v", err)
	}
	fmt.Printf("4. REOPEN: persisted round trip %v\n", verdict(bytes.Equal(got, payload)))

	stats := c.Stats()
	fmt.Printf("\nStats: %d hits, %d misses, %d loads, %d flushes\n",
		stats.Hits, stats.Misses, stats.Loads, stats.Flushes)

	if err := c.Close(); err != nil {
		log.Fatalf("Failed to close: %v", err)
	}
	os.Remove(path)
	fmt.Println("\nDone.")
}

func openCache(path string) *cache.Cache {
	disk, err := backend.OpenDisk(path)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	c, err := cache.Open(cache.DefaultConfig(disk))
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	return c
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "MISMATCH"
}
