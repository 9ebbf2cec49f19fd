package regioncodec

// Store is the contiguous memory behind a region.
//
// Implementations must keep the first byte of the returned slice aligned to
// MaxAlign and preserve existing contents across Grow. The returned slice may
// move on Grow; callers holding views into the old slice must not use them.
type Store interface {
	// Bytes returns the whole backing array (len is the current capacity).
	Bytes() []byte
	// Grow ensures capacity for at least n bytes and returns the backing array.
	Grow(n int) ([]byte, error)
}

// StoreSizer reports a hard upper bound on store capacity, if any.
type StoreSizer interface {
	Limit() int
}

// Releaser is implemented by stores holding resources beyond Go memory.
type Releaser interface {
	Release() error
}

// MaxAlign is the strictest alignment any Go type requires on supported
// platforms. Region bases are always aligned to it.
const MaxAlign = 8
