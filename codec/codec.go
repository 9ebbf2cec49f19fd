package codec

import (
	"fmt"
	"iter"
	"reflect"
	"unsafe"

	"github.com/wippyai/region-codec/errors"
	"github.com/wippyai/region-codec/region"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
)

var defaultCompiler = NewCompiler()

// DefaultCompiler returns the compiler used when no WithCompiler option is given.
func DefaultCompiler() *Compiler {
	return defaultCompiler
}

type options struct {
	compiler *Compiler
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures a Codec.
type Option func(*options)

// WithCompiler selects the compiler (and therefore capability cache) to use.
func WithCompiler(c *Compiler) Option {
	return func(o *options) { o.compiler = c }
}

// WithLogger sets the logger for rejected encodes and decodes.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches counters.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Codec encodes values of T into regions and decodes borrowed *T views from
// region bytes. A Codec is immutable and safe for concurrent use; the
// regions and buffers it is given are not.
type Codec[T any] struct {
	cap     Capability
	log     *zap.Logger
	metrics *Metrics
	name    string
}

// New compiles T and returns its codec.
func New[T any](opts ...Option) (*Codec[T], error) {
	o := options{compiler: defaultCompiler}
	for _, opt := range opts {
		opt(&o)
	}
	if o.compiler == nil {
		o.compiler = defaultCompiler
	}
	t := reflect.TypeFor[T]()
	c, err := o.compiler.Compile(t)
	if err != nil {
		return nil, err
	}
	return &Codec[T]{
		cap:     c,
		log:     o.logger,
		metrics: o.metrics,
		name:    t.String(),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](opts ...Option) *Codec[T] {
	c, err := New[T](opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Capability returns the compiled capability for T.
func (c *Codec[T]) Capability() Capability {
	return c.cap
}

func (c *Codec[T]) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}

// Encode appends one record for *v to r: alignment padding, the head image
// of *v, then its indirect payload. v is never modified. On failure r is
// truncated back to its length before the call.
//
// References are followed as a tree. A value whose recursive references nest
// deeper than MaxDepth, a cycle included, fails with errors.KindOverflow.
func (c *Codec[T]) Encode(r *region.Region, v *T) error {
	if v == nil {
		return errors.NilPointer(errors.PhaseEncode, nil, "*"+c.name)
	}
	start := r.Len()
	if _, err := encodeRecord(c.cap, r, unsafe.Pointer(v)); err != nil {
		c.metrics.encodeFailed(err)
		c.logger().Debug("encode rolled back",
			zap.String("type", c.name),
			zap.Int("offset", start),
			zap.Error(err))
		return err
	}
	c.metrics.encoded(r.Len() - start)
	return nil
}

// EncodeAll appends one record per element of vs. Either every record is
// appended or the region is left as it was.
func (c *Codec[T]) EncodeAll(r *region.Region, vs []T) error {
	start := r.Len()
	for i := range vs {
		if err := c.Encode(r, &vs[i]); err != nil {
			r.Truncate(start)
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

// Decode fixes up the record at the front of buf in place and returns a view
// of it along with the unconsumed remainder.
//
// buf must map the bytes at the same alignment they were encoded at: a region's
// Bytes, a suffix returned by a previous Decode, or bytes copied with
// region.Load. The view aliases buf and is valid while buf is neither
// modified nor released. Each record may be decoded once; a second decode of
// a record with references reports errors.KindReentrant.
//
// On failure buf is left untouched and returned unchanged as the remainder.
func (c *Codec[T]) Decode(buf []byte) (*T, []byte, error) {
	p, end, err := decodeRecord(c.cap, buf)
	if err != nil {
		c.metrics.decodeFailed(err)
		c.logger().Debug("decode rejected",
			zap.String("type", c.name),
			zap.Int("len", len(buf)),
			zap.Error(err))
		return nil, buf, err
	}
	c.metrics.decoded(end)
	return (*T)(p), buf[end:], nil
}

// DecodeAll decodes records until buf is exhausted. On failure it returns the
// views decoded so far, which stay valid, and the error.
//
// Records of a zero-size T occupy no bytes, so a batch of them cannot be
// recovered: an empty buf yields no views and a non-empty one is rejected
// with errors.KindInvalidData.
func (c *Codec[T]) DecodeAll(buf []byte) ([]*T, error) {
	var out []*T
	for i := 0; len(buf) > 0; i++ {
		v, rest, err := c.Decode(buf)
		if err == nil && len(rest) == len(buf) {
			err = c.stalled(buf)
		}
		if err != nil {
			return out, prefixPath(err, indexSeg(i))
		}
		out = append(out, v)
		buf = rest
	}
	return out, nil
}

// stalled reports bytes left over after a record that consumed none of them.
func (c *Codec[T]) stalled(buf []byte) error {
	err := errors.InvalidData(errors.PhaseDecode, nil, 0,
		fmt.Sprintf("zero-size record consumes none of %d remaining bytes", len(buf)))
	err.GoType = c.name
	return err
}

// All iterates over the records in buf, decoding each as it is reached.
// Iteration stops after the first error. Zero-size records are handled as in
// DecodeAll.
func (c *Codec[T]) All(buf []byte) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for i := 0; len(buf) > 0; i++ {
			v, rest, err := c.Decode(buf)
			if err == nil && len(rest) == len(buf) {
				err = c.stalled(buf)
			}
			if err != nil {
				yield(nil, prefixPath(err, indexSeg(i)))
				return
			}
			buf = rest
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Verify checks the record at the front of buf without modifying it and
// returns its length, including leading alignment padding.
func (c *Codec[T]) Verify(buf []byte) (int, error) {
	_, end, err := verifyRecord(c.cap, buf)
	if err != nil {
		return 0, err
	}
	return end, nil
}

// Measure returns the number of bytes Encode would append for *v to a region
// whose length is a multiple of regioncodec.MaxAlign.
func (c *Codec[T]) Measure(v *T) (int, error) {
	if v == nil {
		return 0, errors.NilPointer(errors.PhaseEncode, nil, "*"+c.name)
	}
	return measureRecord(c.cap, 0, unsafe.Pointer(v))
}

// Schema describes T as a WIT type.
func (c *Codec[T]) Schema() wit.Type {
	return Schema(c.cap)
}

// Encode appends one record for *v using the default compiler.
func Encode[T any](r *region.Region, v *T) error {
	c, err := defaultCompiler.Compile(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	if v == nil {
		return errors.NilPointer(errors.PhaseEncode, nil, "*"+c.Type().String())
	}
	_, err = encodeRecord(c, r, unsafe.Pointer(v))
	return err
}

// Decode decodes the record at the front of buf using the default compiler.
func Decode[T any](buf []byte) (*T, []byte, error) {
	c, err := defaultCompiler.Compile(reflect.TypeFor[T]())
	if err != nil {
		return nil, buf, err
	}
	p, end, err := decodeRecord(c, buf)
	if err != nil {
		return nil, buf, err
	}
	return (*T)(p), buf[end:], nil
}
