package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cobaltdb/pagebuf/pkg/backend"
	"github.com/cobaltdb/pagebuf/pkg/cache"
)

var (
	flagHelp      bool
	flagInMemory  bool
	flagPath      string
	flagPageSize  uint64
	flagMaxPages  int
	flagPolicy    string
	flagOps       int
	flagIOSize    int
	flagSeed      int64
	flagConfig    string
	flagWorkloads string
	flagMsgpack   string
)

func init() {
	flag.BoolVar(&flagHelp, "help", false, "Show help")
	flag.BoolVar(&flagHelp, "h", false, "Show help (short)")
	flag.BoolVar(&flagInMemory, "memory", true, "Use an in-memory backend")
	flag.StringVar(&flagPath, "path", "bench.pagebuf", "Backend file path")
	flag.Uint64Var(&flagPageSize, "pagesize", 4096, "Page size in bytes (power of two)")
	flag.IntVar(&flagMaxPages, "pages", 64, "Maximum resident pages")
	flag.StringVar(&flagPolicy, "policy", "lru", "Replacement policy: lru, fifo")
	flag.IntVar(&flagOps, "ops", 10000, "Operations per workload")
	flag.IntVar(&flagIOSize, "iosize", 1000, "Bytes per operation")
	flag.Int64Var(&flagSeed, "seed", 1, "Random seed")
	flag.StringVar(&flagConfig, "config", "", "TOML workload file (overrides flags)")
	flag.StringVar(&flagWorkloads, "bench", "all", "Workloads to run: all, seq-write, seq-read, rand-write, rand-read")
	flag.StringVar(&flagMsgpack, "msgpack", "", "Write the final stats snapshot to this file as MessagePack")
}

// workloadConfig mirrors the flag set for TOML-driven runs
type workloadConfig struct {
	InMemory bool   `toml:"memory"`
	Path     string `toml:"path"`
	PageSize uint64 `toml:"page_size"`
	MaxPages int    `toml:"max_pages"`
	Policy   string `toml:"policy"`
	Ops      int    `toml:"ops"`
	IOSize   int    `toml:"io_size"`
	Seed     int64  `toml:"seed"`
}

func main() {
	flag.Parse()

	if flagHelp {
		printHelp()
		os.Exit(0)
	}

	if flagConfig != "" {
		if err := loadConfig(flagConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	if err := runWorkloads(); err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`
pagebuf Benchmark Tool v1.0

Usage:
  pagebuf-bench [options]

Options:
  -h, -help           Show this help message
  -memory             Use an in-memory backend (default: true)
  -path <path>        Backend file path
  -pagesize <n>       Page size in bytes, power of two (default: 4096)
  -pages <n>          Maximum resident pages (default: 64)
  -policy <name>      Replacement policy: lru, fifo
  -ops <n>            Operations per workload (default: 10000)
  -iosize <n>         Bytes per operation (default: 1000)
  -config <path>      TOML workload file (overrides flags)
  -bench <name>       Workload: all, seq-write, seq-read, rand-write, rand-read
  -msgpack <path>     Dump the final stats snapshot as MessagePack

Examples:
  pagebuf-bench
  pagebuf-bench -pages 16 -policy fifo
  pagebuf-bench -config workload.toml -msgpack stats.bin
`)
}

func loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg := workloadConfig{
		InMemory: flagInMemory,
		Path:     flagPath,
		PageSize: flagPageSize,
		MaxPages: flagMaxPages,
		Policy:   flagPolicy,
		Ops:      flagOps,
		IOSize:   flagIOSize,
		Seed:     flagSeed,
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	flagInMemory = cfg.InMemory
	flagPath = cfg.Path
	flagPageSize = cfg.PageSize
	flagMaxPages = cfg.MaxPages
	flagPolicy = cfg.Policy
	flagOps = cfg.Ops
	flagIOSize = cfg.IOSize
	flagSeed = cfg.Seed
	return nil
}

func openCache() (*cache.Cache, error) {
	var be backend.Backend
	if flagInMemory {
		be = backend.NewMemory()
	} else {
		disk, err := backend.OpenDisk(flagPath)
		if err != nil {
			return nil, err
		}
		be = disk
	}

	cfg := cache.DefaultConfig(be)
	cfg.PageSize = flagPageSize
	cfg.MaxPages = flagMaxPages
	switch flagPolicy {
	case "lru":
		cfg.Policy = cache.PolicyLRU
	case "fifo":
		cfg.Policy = cache.PolicyFIFO
	default:
		return nil, fmt.Errorf("unknown policy %q", flagPolicy)
	}
	return cache.Open(cfg)
}

func runWorkloads() error {
	fmt.Printf("pagebuf Benchmark Tool\n")
	fmt.Printf("======================\n")
	fmt.Printf("Pages: %d x %d bytes, policy %s\n", flagMaxPages, flagPageSize, flagPolicy)
	fmt.Printf("Ops: %d x %d bytes\n\n", flagOps, flagIOSize)

	c, err := openCache()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(flagSeed))
	span := uint64(flagOps) * uint64(flagIOSize)
	buf := make([]byte, flagIOSize)
	rng.Read(buf)

	workloads := []struct {
		name string
		op   func(i int) error
	}{
		{"seq-write", func(i int) error {
			return c.WriteAt(backend.MemDefault, uint64(i)*uint64(flagIOSize), buf)
		}},
		{"seq-read", func(i int) error {
			return c.ReadAt(backend.MemDefault, uint64(i)*uint64(flagIOSize), buf)
		}},
		{"rand-write", func(i int) error {
			return c.WriteAt(backend.MemDefault, uint64(rng.Int63n(int64(span))), buf)
		}},
		{"rand-read", func(i int) error {
			return c.ReadAt(backend.MemDefault, uint64(rng.Int63n(int64(span))), buf)
		}},
	}

	for _, w := range workloads {
		if flagWorkloads != "all" && flagWorkloads != w.name {
			continue
		}
		start := time.Now()
		for i := 0; i < flagOps; i++ {
			if err := w.op(i); err != nil {
				return fmt.Errorf("%s op %d: %w", w.name, i, err)
			}
		}
		elapsed := time.Since(start)
		fmt.Printf("%-11s %8d ops in %v (%.0f ops/sec)\n",
			w.name, flagOps, elapsed.Round(time.Microsecond),
			float64(flagOps)/elapsed.Seconds())
	}

	if err := c.Flush(); err != nil {
		return err
	}

	stats := c.Stats()
	fmt.Printf("\nCache stats\n")
	fmt.Printf("  hit rate:      %.2f%% (%d hits, %d misses)\n", stats.HitRate()*100, stats.Hits, stats.Misses)
	fmt.Printf("  loads:         %d\n", stats.Loads)
	fmt.Printf("  evictions:     %d\n", stats.Evictions)
	fmt.Printf("  flushes:       %d\n", stats.Flushes)
	fmt.Printf("  invalidations: %d\n", stats.Invalidations)
	fmt.Printf("  bypass I/O:    %d reads, %d writes\n", stats.BypassReads, stats.BypassWrites)

	if flagMsgpack != "" {
		blob, err := msgpack.Marshal(&stats)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagMsgpack, blob, 0644); err != nil {
			return err
		}
		fmt.Printf("\nStats snapshot written to %s (%d bytes)\n", flagMsgpack, len(blob))
	}

	return c.Close()
}
