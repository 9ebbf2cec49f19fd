package codec

import (
	"strconv"
	"sync"
	"unsafe"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"github.com/wippyai/region-codec/errors"
	"github.com/wippyai/region-codec/region"
)

// Safety limits on the lengths a record may carry.
const (
	MaxStringSize  = abi.MaxStringSize
	MaxSliceLength = abi.MaxSliceLength
	MaxAlloc       = abi.MaxAlloc
	// MaxDepth bounds how many recursive-type references one record may
	// nest. A cyclic value reaches it instead of exhausting the stack.
	MaxDepth = abi.MaxDepth
)

// SlotPresent is the placeholder an encoded reference slot holds until fixup.
const SlotPresent = abi.SlotPresent

const wordSize = abi.WordSize

type encodeState struct {
	r     *region.Region
	depth int
}

var encodeStatePool = sync.Pool{
	New: func() any { return new(encodeState) },
}

// encodeRecord appends one record for the value at src and returns the
// offset of its head. The region is left as it was on failure.
func encodeRecord(c Capability, r *region.Region, src unsafe.Pointer) (int, error) {
	start := r.Len()

	e := encodeStatePool.Get().(*encodeState)
	e.r = r
	at, err := e.place(c.Align(), abi.Bytes(src, c.HeadSize()))
	if err == nil && !c.Pure() {
		err = c.encode(e, at, src)
	}
	e.r = nil
	e.depth = 0
	encodeStatePool.Put(e)

	if err != nil {
		r.Truncate(start)
		return 0, err
	}
	return at, nil
}

// place pads to align and appends p, returning the offset of p.
func (e *encodeState) place(align uintptr, p []byte) (int, error) {
	if err := e.r.Pad(int(align)); err != nil {
		return 0, e.allocErr(len(p), err)
	}
	at := e.r.Len()
	if err := e.r.Append(p); err != nil {
		return 0, e.allocErr(len(p), err)
	}
	return at, nil
}

func (e *encodeState) allocErr(n int, cause error) error {
	if kind, ok := errors.KindOf(cause); ok && kind == errors.KindOverflow {
		return errors.Wrap(errors.PhaseEncode, errors.KindOverflow, cause, "region size overflow")
	}
	return errors.AllocationFailed(errors.PhaseEncode, e.r.Len()+n, cause)
}

func (e *encodeState) buf() []byte {
	return e.r.Bytes()
}

func (c *scalarCap) encode(*encodeState, int, unsafe.Pointer) error { return nil }

func (c *boolCap) encode(*encodeState, int, unsafe.Pointer) error { return nil }

func (c *skipCap) encode(e *encodeState, at int, _ unsafe.Pointer) error {
	clear(e.buf()[at : at+int(c.size)])
	return nil
}

func (c *stringCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	s := *(*string)(src)
	buf := e.buf()
	if len(s) == 0 {
		abi.PutWord(buf, at, abi.SlotNil)
		abi.PutInt(buf, at+wordSize, 0)
		return nil
	}
	if len(s) > MaxStringSize {
		return errors.Overflow(errors.PhaseEncode, nil, len(s), MaxStringSize)
	}
	abi.PutWord(buf, at, abi.SlotPresent)
	if err := e.r.Append(unsafe.Slice(unsafe.StringData(s), len(s))); err != nil {
		return e.allocErr(len(s), err)
	}
	return nil
}

type sliceHeader struct {
	data unsafe.Pointer
	len  int
	cap  int
}

func (c *sliceCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	h := (*sliceHeader)(src)
	buf := e.buf()
	if h.data == nil {
		abi.PutWord(buf, at, abi.SlotNil)
		abi.PutInt(buf, at+wordSize, 0)
		abi.PutInt(buf, at+2*wordSize, 0)
		return nil
	}
	if h.len > MaxSliceLength {
		return errors.Overflow(errors.PhaseEncode, nil, h.len, MaxSliceLength)
	}
	abi.PutWord(buf, at, abi.SlotPresent)
	abi.PutInt(buf, at+2*wordSize, h.len)

	elemSize := c.elem.HeadSize()
	if h.len == 0 || elemSize == 0 {
		return nil
	}
	n, ok := abi.SafeMul(h.len, int(elemSize))
	if !ok || n > MaxAlloc {
		return errors.Overflow(errors.PhaseEncode, nil, h.len, "element bytes within MaxAlloc")
	}
	base, err := e.place(c.elem.Align(), abi.Bytes(h.data, uintptr(n)))
	if err != nil {
		return err
	}
	if c.elem.Pure() {
		return nil
	}
	for i := 0; i < h.len; i++ {
		off := uintptr(i) * elemSize
		if err := c.elem.encode(e, base+int(off), unsafe.Add(h.data, off)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

func (c *arrayCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	elemSize := c.elem.HeadSize()
	for i := 0; i < c.n; i++ {
		off := uintptr(i) * elemSize
		if err := c.elem.encode(e, at+int(off), unsafe.Add(src, off)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

func (c *pointerCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	p := *(*unsafe.Pointer)(src)
	if p == nil {
		abi.PutWord(e.buf(), at, abi.SlotNil)
		return nil
	}
	abi.PutWord(e.buf(), at, abi.SlotPresent)
	if c.elem.HeadSize() == 0 {
		return nil
	}
	base, err := e.place(c.elem.Align(), abi.Bytes(p, c.elem.HeadSize()))
	if err != nil {
		return err
	}
	if c.elem.Pure() {
		return nil
	}
	if err := c.elem.encode(e, base, p); err != nil {
		return prefixPath(err, "*")
	}
	return nil
}

func (c *structCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	for i := range c.fields {
		f := &c.fields[i]
		if f.Cap.Pure() {
			continue
		}
		if err := f.Cap.encode(e, at+int(f.Offset), unsafe.Add(src, f.Offset)); err != nil {
			return prefixPath(err, f.Name)
		}
	}
	return nil
}

func (c *unionCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	disc := abi.LoadInt(unsafe.Add(src, c.tagOffset), c.tagKind)
	if !c.declared(disc) {
		err := errors.InvalidDiscriminant(errors.PhaseEncode, nil, disc)
		err.GoType = c.typ.String()
		return err
	}
	for i := range c.fields {
		f := &c.fields[i]
		if f.Tag {
			continue
		}
		if !f.activeFor(disc) {
			size := int(f.Cap.HeadSize())
			clear(e.buf()[at+int(f.Offset) : at+int(f.Offset)+size])
			continue
		}
		if f.Cap.Pure() {
			continue
		}
		if err := f.Cap.encode(e, at+int(f.Offset), unsafe.Add(src, f.Offset)); err != nil {
			return prefixPath(err, f.Name)
		}
	}
	return nil
}

// prefixPath prepends seg to the path of a structured error. Paths are only
// assembled on failure.
func prefixPath(err error, seg string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{seg}, e.Path...)
	}
	return err
}

func indexSeg(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
