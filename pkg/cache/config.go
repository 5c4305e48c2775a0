package cache

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/cobaltdb/pagebuf/pkg/backend"
)

const (
	// ConfigMagic tags a Config record as one of ours.
	ConfigMagic uint32 = 0x50425546 // "PBUF"
	// ConfigVersion is the current Config layout version.
	ConfigVersion uint32 = 1

	// DefaultPageSize is the default page size (4KB)
	DefaultPageSize uint64 = 4096
	// DefaultMaxPages is the default resident-page limit
	DefaultMaxPages = 64
	// DefaultNumBuckets is the default hash bucket count
	DefaultNumBuckets = 16
)

// Config carries the cache configuration handed to Open
type Config struct {
	Magic   uint32
	Version uint32

	// PageSize is the page size in bytes; must be a power of two.
	PageSize uint64
	// MaxPages bounds the number of resident pages.
	MaxPages int
	// Policy selects the replacement policy.
	Policy Policy
	// NumBuckets is the hash bucket count; must be a power of two.
	NumBuckets int
	// Backend is the opened lower storage provider.
	Backend backend.Backend
	// Logger receives structured diagnostics; nil discards them.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the default cache configuration over the given backend
func DefaultConfig(be backend.Backend) *Config {
	return &Config{
		Magic:      ConfigMagic,
		Version:    ConfigVersion,
		PageSize:   DefaultPageSize,
		MaxPages:   DefaultMaxPages,
		Policy:     PolicyLRU,
		NumBuckets: DefaultNumBuckets,
		Backend:    be,
	}
}

// validate checks the configuration record before any state is allocated
func (c *Config) validate() error {
	if c.Magic != ConfigMagic {
		return fmt.Errorf("%w: bad magic %#x", ErrConfig, c.Magic)
	}
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrConfig, c.Version)
	}
	if c.PageSize == 0 || bits.OnesCount64(c.PageSize) != 1 {
		return fmt.Errorf("%w: page size %d is not a power of two", ErrConfig, c.PageSize)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages %d is not positive", ErrConfig, c.MaxPages)
	}
	if c.Policy != PolicyLRU && c.Policy != PolicyFIFO {
		return fmt.Errorf("%w: unknown replacement policy %d", ErrConfig, c.Policy)
	}
	if c.NumBuckets <= 0 || bits.OnesCount(uint(c.NumBuckets)) != 1 {
		return fmt.Errorf("%w: bucket count %d is not a power of two", ErrConfig, c.NumBuckets)
	}
	if c.Backend == nil {
		return fmt.Errorf("%w: nil backend", ErrConfig)
	}
	return nil
}

// logger resolves the configured logger, defaulting to a discarding one
func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
