package cache

import (
	"errors"
)

var (
	// ErrConfig reports an invalid or unsupported cache configuration.
	ErrConfig = errors.New("invalid cache configuration")
	// ErrAddrUndefined reports a request at the undefined address sentinel.
	ErrAddrUndefined = errors.New("address is undefined")
	// ErrOverflow reports a request extending past the addressable range.
	ErrOverflow = errors.New("address overflow")
	// ErrExhausted reports an eviction attempt with every resident page busy.
	ErrExhausted = errors.New("all resident pages are busy")
	// ErrInconsistent reports a broken runtime invariant.
	ErrInconsistent = errors.New("cache state is inconsistent")
)
