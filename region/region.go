package region

import (
	"io"
	"unsafe"

	regioncodec "github.com/wippyai/region-codec"
	"github.com/wippyai/region-codec/errors"
	"go.uber.org/zap"
)

const (
	minGrow = 64
	minRead = 512
)

type config struct {
	store    regioncodec.Store
	logger   *zap.Logger
	capacity int
}

// Option configures a Region.
type Option func(*config)

// WithCapacity preallocates n bytes.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithStore sets the backing store. The default is an unbounded HeapStore.
func WithStore(s regioncodec.Store) Option {
	return func(c *config) { c.store = s }
}

// WithLogger sets the logger used for growth diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Region is a growable contiguous byte store. It is not safe for concurrent use.
type Region struct {
	store regioncodec.Store
	log   *zap.Logger
	buf   []byte
	n     int
	gen   uint64
}

// New creates an empty region.
func New(opts ...Option) *Region {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.store == nil {
		cfg.store = NewHeapStore(0)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	r := &Region{
		store: cfg.store,
		log:   cfg.logger,
		buf:   cfg.store.Bytes(),
	}
	if cfg.capacity > 0 {
		// A failed preallocation surfaces again on the first Reserve.
		_ = r.Reserve(cfg.capacity)
	}
	return r
}

// NewWithStore creates an empty region over s.
func NewWithStore(s regioncodec.Store, opts ...Option) *Region {
	return New(append(opts, WithStore(s))...)
}

// Len returns the number of bytes in use.
func (r *Region) Len() int { return r.n }

// Cap returns the capacity of the backing array.
func (r *Region) Cap() int { return len(r.buf) }

// Generation changes whenever previously returned bytes or views may have
// been invalidated.
func (r *Region) Generation() uint64 { return r.gen }

// Bytes returns the bytes in use. The slice aliases the region and its
// capacity is clipped so appends to it cannot scribble over region memory.
func (r *Region) Bytes() []byte {
	return r.buf[:r.n:r.n]
}

// Store returns the backing store.
func (r *Region) Store() regioncodec.Store { return r.store }

// Reserve ensures at least n more bytes can be appended without growing.
func (r *Region) Reserve(n int) error {
	if n < 0 {
		return errors.New(errors.PhaseStore, errors.KindOverflow).
			Detail("negative reservation %d", n).
			Build()
	}
	need := r.n + n
	if need < r.n {
		return errors.Overflow(errors.PhaseStore, nil, n, "int")
	}
	if need <= len(r.buf) {
		return nil
	}
	return r.grow(need)
}

func (r *Region) grow(need int) error {
	target := 2 * len(r.buf)
	if target < minGrow {
		target = minGrow
	}
	if target < need {
		target = need
	}
	if s, ok := r.store.(regioncodec.StoreSizer); ok {
		if limit := s.Limit(); limit > 0 && target > limit && need <= limit {
			target = limit
		}
	}

	var oldBase unsafe.Pointer
	if len(r.buf) > 0 {
		oldBase = unsafe.Pointer(&r.buf[0])
	}
	buf, err := r.store.Grow(target)
	if err != nil {
		r.log.Debug("region growth failed",
			zap.Int("len", r.n),
			zap.Int("need", need),
			zap.Error(err))
		return err
	}
	if len(buf) < need {
		return errors.AllocationFailed(errors.PhaseStore, need, nil)
	}
	if len(buf) > 0 && uintptr(unsafe.Pointer(&buf[0]))%regioncodec.MaxAlign != 0 {
		return errors.Misaligned(errors.PhaseStore, "", uintptr(unsafe.Pointer(&buf[0])), regioncodec.MaxAlign)
	}
	moved := len(buf) > 0 && unsafe.Pointer(&buf[0]) != oldBase
	if moved {
		r.gen++
	}
	r.log.Debug("region grew",
		zap.Int("from", len(r.buf)),
		zap.Int("to", len(buf)),
		zap.Bool("moved", moved))
	r.buf = buf
	return nil
}

// Append copies p to the end of the region.
func (r *Region) Append(p []byte) error {
	if err := r.Reserve(len(p)); err != nil {
		return err
	}
	copy(r.buf[r.n:], p)
	r.n += len(p)
	return nil
}

// AppendZero appends n zero bytes and returns the offset of the first one.
func (r *Region) AppendZero(n int) (int, error) {
	if err := r.Reserve(n); err != nil {
		return 0, err
	}
	off := r.n
	clear(r.buf[off : off+n])
	r.n += n
	return off, nil
}

// Pad appends zero bytes until Len is a multiple of align.
func (r *Region) Pad(align int) error {
	if align <= 1 {
		return nil
	}
	if rem := r.n % align; rem != 0 {
		_, err := r.AppendZero(align - rem)
		return err
	}
	return nil
}

// Truncate discards all bytes past n. It does not release capacity.
func (r *Region) Truncate(n int) {
	if n < 0 || n > r.n {
		panic("region: truncate out of range")
	}
	if n != r.n {
		r.n = n
		r.gen++
	}
}

// Reset empties the region while keeping its capacity.
func (r *Region) Reset() {
	r.n = 0
	r.gen++
}

// Load replaces the region contents with a copy of p, placing it on an
// aligned base so it can be decoded.
func (r *Region) Load(p []byte) error {
	r.Reset()
	return r.Append(p)
}

// ReadFrom appends everything read from rd until EOF.
func (r *Region) ReadFrom(rd io.Reader) (int64, error) {
	var total int64
	for {
		if err := r.Reserve(minRead); err != nil {
			return total, err
		}
		m, err := rd.Read(r.buf[r.n:])
		if m < 0 {
			panic("region: reader returned negative count")
		}
		r.n += m
		total += int64(m)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// WriteTo writes the bytes in use to w.
func (r *Region) WriteTo(w io.Writer) (int64, error) {
	m, err := w.Write(r.buf[:r.n])
	if err == nil && m != r.n {
		err = io.ErrShortWrite
	}
	return int64(m), err
}

// Release empties the region and releases its store if the store holds
// external resources. The region must not be used afterwards.
func (r *Region) Release() error {
	r.n = 0
	r.buf = nil
	r.gen++
	if rel, ok := r.store.(regioncodec.Releaser); ok {
		return rel.Release()
	}
	return nil
}

// HeapStore is a Go-heap backed store. Memory is allocated as []uint64 so the
// base is 8-byte aligned and the garbage collector never scans its contents.
type HeapStore struct {
	words []uint64
	limit int
}

// NewHeapStore returns a heap store. A positive limit caps its capacity.
func NewHeapStore(limit int) *HeapStore {
	return &HeapStore{limit: limit}
}

// Bytes implements regioncodec.Store.
func (h *HeapStore) Bytes() []byte {
	if len(h.words) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&h.words[0])), len(h.words)*8)
}

// Grow implements regioncodec.Store.
func (h *HeapStore) Grow(n int) ([]byte, error) {
	if n <= len(h.words)*8 {
		return h.Bytes(), nil
	}
	if h.limit > 0 && n > h.limit {
		return nil, errors.AllocationFailed(errors.PhaseStore, n,
			errors.Overflow(errors.PhaseStore, nil, n, h.limit))
	}
	words := make([]uint64, (n+7)/8)
	copy(words, h.words)
	h.words = words
	return h.Bytes(), nil
}

// Limit implements regioncodec.StoreSizer.
func (h *HeapStore) Limit() int { return h.limit }

var (
	_ regioncodec.Store      = (*HeapStore)(nil)
	_ regioncodec.StoreSizer = (*HeapStore)(nil)
)
