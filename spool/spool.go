package spool

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/wippyai/region-codec/errors"
	"github.com/wippyai/region-codec/region"
	"go.uber.org/zap"
)

const (
	headerSize = 9

	// FlagSnappy marks a snappy compressed body.
	FlagSnappy byte = 1 << 0

	knownFlags = FlagSnappy

	// DefaultMaxFrameSize bounds the stored and decompressed size of a frame.
	DefaultMaxFrameSize = 1 << 30
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type config struct {
	logger       *zap.Logger
	compress     bool
	maxFrameSize int
}

// Option configures a Writer or Reader.
type Option func(*config)

// WithCompression enables snappy compression of frame bodies.
func WithCompression(on bool) Option {
	return func(c *config) { c.compress = on }
}

// WithMaxFrameSize sets the largest frame a Reader accepts.
func WithMaxFrameSize(n int) Option {
	return func(c *config) { c.maxFrameSize = n }
}

// WithLogger sets the logger for frame diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) config {
	c := config{maxFrameSize: DefaultMaxFrameSize}
	for _, o := range opts {
		o(&c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.maxFrameSize <= 0 || c.maxFrameSize > DefaultMaxFrameSize {
		c.maxFrameSize = DefaultMaxFrameSize
	}
	return c
}

// Writer appends frames to an io.Writer.
type Writer struct {
	w        io.Writer
	log      *zap.Logger
	scratch  []byte
	hdr      [headerSize]byte
	frames   int
	compress bool
}

// NewWriter returns a Writer appending to w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	c := newConfig(opts)
	return &Writer{w: w, log: c.logger, compress: c.compress}
}

// Write appends the bytes of r as one frame.
func (w *Writer) Write(r *region.Region) error {
	return w.WriteBytes(r.Bytes())
}

// WriteBytes appends p as one frame.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) > DefaultMaxFrameSize {
		return errors.Overflow(errors.PhaseStore, nil, len(p), DefaultMaxFrameSize)
	}
	body, flags := p, byte(0)
	if w.compress {
		w.scratch = snappy.Encode(w.scratch[:cap(w.scratch)], p)
		if len(w.scratch) < len(p) {
			body, flags = w.scratch, FlagSnappy
		}
	}

	binary.LittleEndian.PutUint32(w.hdr[0:4], uint32(len(body)))
	w.hdr[4] = flags
	binary.LittleEndian.PutUint32(w.hdr[5:9], crc32.Checksum(body, castagnoli))
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return fmt.Errorf("spool: write frame header: %w", err)
	}
	if _, err := w.w.Write(body); err != nil {
		return fmt.Errorf("spool: write frame body: %w", err)
	}
	w.frames++
	w.log.Debug("frame written",
		zap.Int("frame", w.frames),
		zap.Int("size", len(p)),
		zap.Int("stored", len(body)))
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int { return w.frames }

// Reader reads frames written by Writer.
type Reader struct {
	r        io.Reader
	log      *zap.Logger
	scratch  []byte
	hdr      [headerSize]byte
	maxFrame int
	frames   int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	c := newConfig(opts)
	return &Reader{r: r, log: c.logger, maxFrame: c.maxFrameSize}
}

// Next replaces the contents of dst with the body of the next frame. It
// returns io.EOF when no frames remain and io.ErrUnexpectedEOF for a
// partial frame. On a checksum or size error dst is left empty.
func (rd *Reader) Next(dst *region.Region) error {
	if _, err := io.ReadFull(rd.r, rd.hdr[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("spool: read frame header: %w", err)
	}
	n := int(binary.LittleEndian.Uint32(rd.hdr[0:4]))
	flags := rd.hdr[4]
	want := binary.LittleEndian.Uint32(rd.hdr[5:9])

	if flags&^knownFlags != 0 {
		return errors.InvalidData(errors.PhaseStore, nil, 4, fmt.Sprintf("unknown frame flags %#x", flags))
	}
	if n > rd.maxFrame {
		return errors.CorruptLength(nil, 0, fmt.Sprintf("frame length %d exceeds %d", n, rd.maxFrame))
	}

	dst.Reset()
	var err error
	if flags&FlagSnappy != 0 {
		err = rd.readCompressed(dst, n, want)
	} else {
		err = rd.readPlain(dst, n, want)
	}
	if err != nil {
		dst.Reset()
		return err
	}
	rd.frames++
	rd.log.Debug("frame read",
		zap.Int("frame", rd.frames),
		zap.Int("size", dst.Len()),
		zap.Bool("compressed", flags&FlagSnappy != 0))
	return nil
}

func (rd *Reader) readPlain(dst *region.Region, n int, want uint32) error {
	off, err := dst.AppendZero(n)
	if err != nil {
		return err
	}
	body := dst.Bytes()[off:]
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return fmt.Errorf("spool: read frame body: %w", unexpected(err))
	}
	if got := crc32.Checksum(body, castagnoli); got != want {
		return errors.Checksum(want, got)
	}
	return nil
}

func (rd *Reader) readCompressed(dst *region.Region, n int, want uint32) error {
	if cap(rd.scratch) < n {
		rd.scratch = make([]byte, n)
	}
	body := rd.scratch[:n]
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return fmt.Errorf("spool: read frame body: %w", unexpected(err))
	}
	if got := crc32.Checksum(body, castagnoli); got != want {
		return errors.Checksum(want, got)
	}

	size, err := snappy.DecodedLen(body)
	if err != nil {
		return errors.Wrap(errors.PhaseStore, errors.KindInvalidData, err, "snappy header")
	}
	if size > rd.maxFrame {
		return errors.CorruptLength(nil, 0, fmt.Sprintf("decompressed length %d exceeds %d", size, rd.maxFrame))
	}
	off, err := dst.AppendZero(size)
	if err != nil {
		return err
	}
	if _, err := snappy.Decode(dst.Bytes()[off:], body); err != nil {
		return errors.Wrap(errors.PhaseStore, errors.KindInvalidData, err, "snappy body")
	}
	return nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteFile writes one frame per region to the named file, replacing it.
func WriteFile(path string, regions []*region.Region, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spool: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("spool: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	w := NewWriter(bw, opts...)
	for _, r := range regions {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("spool: flush %s: %w", path, err)
	}
	return nil
}

// ReadFile reads every frame of the named file into a fresh region each.
func ReadFile(path string, opts ...Option) ([]*region.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	defer f.Close()

	rd := NewReader(bufio.NewReader(f), opts...)
	var out []*region.Region
	for {
		r := region.New()
		err := rd.Next(r)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("spool: %s frame %d: %w", path, len(out), err)
		}
		out = append(out, r)
	}
}
