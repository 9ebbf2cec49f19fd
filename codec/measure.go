package codec

import (
	"unsafe"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"github.com/wippyai/region-codec/errors"
)

// measureRecord returns the number of bytes encodeRecord would append for src
// to a region whose length is off.
func measureRecord(c Capability, off int, src unsafe.Pointer) (int, error) {
	at := int(abi.AlignTo(uintptr(off), c.Align()))
	end := at + int(c.HeadSize())
	if c.Pure() {
		return end - off, nil
	}
	end, err := c.measure(0, end, src)
	if err != nil {
		return 0, err
	}
	return end - off, nil
}

func (c *scalarCap) measure(depth, off int, _ unsafe.Pointer) (int, error) { return off, nil }

func (c *boolCap) measure(depth, off int, _ unsafe.Pointer) (int, error) { return off, nil }

func (c *skipCap) measure(depth, off int, _ unsafe.Pointer) (int, error) { return off, nil }

func (c *stringCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	n := len(*(*string)(src))
	if n > MaxStringSize {
		return 0, errors.Overflow(errors.PhaseEncode, nil, n, MaxStringSize)
	}
	return off + n, nil
}

func (c *sliceCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	h := (*sliceHeader)(src)
	elemSize := c.elem.HeadSize()
	if h.data == nil || h.len == 0 || elemSize == 0 {
		return off, nil
	}
	if h.len > MaxSliceLength {
		return 0, errors.Overflow(errors.PhaseEncode, nil, h.len, MaxSliceLength)
	}
	n, ok := abi.SafeMul(h.len, int(elemSize))
	if !ok || n > MaxAlloc {
		return 0, errors.Overflow(errors.PhaseEncode, nil, h.len, "element bytes within MaxAlloc")
	}
	off = int(abi.AlignTo(uintptr(off), c.elem.Align())) + n
	if c.elem.Pure() {
		return off, nil
	}
	var err error
	for i := 0; i < h.len; i++ {
		if off, err = c.elem.measure(depth, off, unsafe.Add(h.data, uintptr(i)*elemSize)); err != nil {
			return 0, prefixPath(err, indexSeg(i))
		}
	}
	return off, nil
}

func (c *arrayCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	if c.elem.Pure() {
		return off, nil
	}
	elemSize := c.elem.HeadSize()
	var err error
	for i := 0; i < c.n; i++ {
		if off, err = c.elem.measure(depth, off, unsafe.Add(src, uintptr(i)*elemSize)); err != nil {
			return 0, prefixPath(err, indexSeg(i))
		}
	}
	return off, nil
}

func (c *pointerCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	p := *(*unsafe.Pointer)(src)
	if p == nil || c.elem.HeadSize() == 0 {
		return off, nil
	}
	off = int(abi.AlignTo(uintptr(off), c.elem.Align())) + int(c.elem.HeadSize())
	if c.elem.Pure() {
		return off, nil
	}
	off, err := c.elem.measure(depth, off, p)
	if err != nil {
		return 0, prefixPath(err, "*")
	}
	return off, nil
}

func (c *structCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	var err error
	for i := range c.fields {
		f := &c.fields[i]
		if f.Cap.Pure() {
			continue
		}
		if off, err = f.Cap.measure(depth, off, unsafe.Add(src, f.Offset)); err != nil {
			return 0, prefixPath(err, f.Name)
		}
	}
	return off, nil
}

func (c *unionCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	disc := abi.LoadInt(unsafe.Add(src, c.tagOffset), c.tagKind)
	if !c.declared(disc) {
		err := errors.InvalidDiscriminant(errors.PhaseEncode, nil, disc)
		err.GoType = c.typ.String()
		return 0, err
	}
	var err error
	for i := range c.fields {
		f := &c.fields[i]
		if f.Tag || f.Cap.Pure() || !f.activeFor(disc) {
			continue
		}
		if off, err = f.Cap.measure(depth, off, unsafe.Add(src, f.Offset)); err != nil {
			return 0, prefixPath(err, f.Name)
		}
	}
	return off, nil
}
