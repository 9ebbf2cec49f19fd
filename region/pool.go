package region

import "sync"

const (
	// DefaultPoolMaxCap bounds the capacity of regions returned to a Pool.
	DefaultPoolMaxCap = 1 << 20
)

// Pool is a caller-owned free list of heap-backed regions.
type Pool struct {
	pool   sync.Pool
	opts   []Option
	maxCap int
}

// NewPool creates a pool. Regions larger than maxCap are not retained; a
// non-positive maxCap selects DefaultPoolMaxCap. opts apply to every region
// the pool creates and must not include WithStore.
func NewPool(maxCap int, opts ...Option) *Pool {
	if maxCap <= 0 {
		maxCap = DefaultPoolMaxCap
	}
	p := &Pool{opts: opts, maxCap: maxCap}
	p.pool.New = func() any {
		return New(p.opts...)
	}
	return p
}

// Get returns an empty region.
func (p *Pool) Get() *Region {
	r := p.pool.Get().(*Region)
	r.Reset()
	return r
}

// Put returns r to the pool. r must not be used afterwards.
func (p *Pool) Put(r *Region) {
	if r == nil || r.Cap() > p.maxCap {
		return // reject oversized
	}
	if _, ok := r.store.(*HeapStore); !ok {
		return
	}
	r.Reset()
	p.pool.Put(r)
}
