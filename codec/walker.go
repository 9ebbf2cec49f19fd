package codec

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"github.com/wippyai/region-codec/errors"
)

// walker traverses one record. The validation pass only reads; the patch
// pass repeats the exact same traversal and rewrites reference slots.
type walker struct {
	buf    []byte
	base   uintptr
	cursor int
	depth  int
	patch  bool
}

var walkerPool = sync.Pool{
	New: func() any { return new(walker) },
}

func getWalker(buf []byte) *walker {
	w := walkerPool.Get().(*walker)
	w.buf = buf
	w.base = uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	return w
}

func putWalker(w *walker) {
	w.buf = nil
	w.base = 0
	w.cursor = 0
	w.depth = 0
	w.patch = false
	walkerPool.Put(w)
}

func (w *walker) remaining() int {
	return len(w.buf) - w.cursor
}

// slot reads a reference slot that must still hold a placeholder.
func (w *walker) slot(at int) (uintptr, error) {
	s := abi.Word(w.buf, at)
	if s != abi.SlotNil && s != abi.SlotPresent {
		return 0, errors.Reentrant(nil, at)
	}
	return s, nil
}

// take reserves n payload bytes aligned to align and returns their offset.
func (w *walker) take(align uintptr, n int) (int, error) {
	pad := abi.PadFor(w.base+uintptr(w.cursor), align)
	start := w.cursor + pad
	if pad > w.remaining() || n > len(w.buf)-start {
		return 0, errors.TruncatedPayload(nil, start, n, max(len(w.buf)-start, 0))
	}
	w.cursor = start + n
	return start, nil
}

func (w *walker) point(at, off int) {
	if w.patch {
		abi.PutWord(w.buf, at, w.base+uintptr(off))
	}
}

func (w *walker) pointEmpty(at int) {
	if w.patch {
		abi.PutWord(w.buf, at, emptyAddr())
	}
}

func (w *walker) clear(at int, size uintptr) {
	if w.patch && size > 0 {
		clear(w.buf[at : at+int(size)])
	}
}

func (c *scalarCap) walk(*walker, int) error { return nil }

func (c *boolCap) walk(w *walker, at int) error {
	if b := w.buf[at]; b > 1 {
		return errors.InvalidData(errors.PhaseDecode, nil, at, fmt.Sprintf("bool byte %#x is not 0 or 1", b))
	}
	return nil
}

func (c *skipCap) walk(w *walker, at int) error {
	w.clear(at, c.size)
	return nil
}

func (c *stringCap) walk(w *walker, at int) error {
	s, err := w.slot(at)
	if err != nil {
		return err
	}
	n := abi.Int(w.buf, at+wordSize)
	if n < 0 || n > MaxStringSize {
		return errors.CorruptLength(nil, at+wordSize, fmt.Sprintf("string length %d out of range", n))
	}
	if s == abi.SlotNil {
		if n != 0 {
			return errors.InvalidData(errors.PhaseDecode, nil, at, fmt.Sprintf("string of length %d has no payload slot", n))
		}
		return nil
	}
	if n == 0 {
		return errors.InvalidData(errors.PhaseDecode, nil, at, "present string slot with zero length")
	}
	off, err := w.take(1, n)
	if err != nil {
		return err
	}
	w.point(at, off)
	return nil
}

func (c *sliceCap) walk(w *walker, at int) error {
	s, err := w.slot(at)
	if err != nil {
		return err
	}
	n := abi.Int(w.buf, at+wordSize)
	capacity := abi.Int(w.buf, at+2*wordSize)
	if n < 0 || n > MaxSliceLength {
		return errors.CorruptLength(nil, at+wordSize, fmt.Sprintf("slice length %d out of range", n))
	}
	if capacity != n {
		return errors.CorruptLength(nil, at+2*wordSize, fmt.Sprintf("slice cap %d differs from len %d", capacity, n))
	}
	if s == abi.SlotNil {
		if n != 0 {
			return errors.InvalidData(errors.PhaseDecode, nil, at, fmt.Sprintf("slice of length %d has no payload slot", n))
		}
		return nil
	}

	elemSize := c.elem.HeadSize()
	if n == 0 || elemSize == 0 {
		w.pointEmpty(at)
		return nil
	}
	size, ok := abi.SafeMul(n, int(elemSize))
	if !ok || size > MaxAlloc {
		return errors.CorruptLength(nil, at+wordSize, fmt.Sprintf("slice length %d overflows element size %d", n, elemSize))
	}
	heads, err := w.take(c.elem.Align(), size)
	if err != nil {
		return err
	}
	w.point(at, heads)
	if !c.elem.checked() {
		return nil
	}
	for i := 0; i < n; i++ {
		if err := c.elem.walk(w, heads+i*int(elemSize)); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

func (c *arrayCap) walk(w *walker, at int) error {
	elemSize := int(c.elem.HeadSize())
	for i := 0; i < c.n; i++ {
		if err := c.elem.walk(w, at+i*elemSize); err != nil {
			return prefixPath(err, indexSeg(i))
		}
	}
	return nil
}

func (c *pointerCap) walk(w *walker, at int) error {
	s, err := w.slot(at)
	if err != nil {
		return err
	}
	if s == abi.SlotNil {
		return nil
	}
	if c.elem.HeadSize() == 0 {
		w.pointEmpty(at)
		return nil
	}
	off, err := w.take(c.elem.Align(), int(c.elem.HeadSize()))
	if err != nil {
		return err
	}
	w.point(at, off)
	if !c.elem.checked() {
		return nil
	}
	if err := c.elem.walk(w, off); err != nil {
		return prefixPath(err, "*")
	}
	return nil
}

func (c *structCap) walk(w *walker, at int) error {
	for i := range c.fields {
		f := &c.fields[i]
		if !f.Cap.checked() {
			continue
		}
		if err := f.Cap.walk(w, at+int(f.Offset)); err != nil {
			return prefixPath(err, f.Name)
		}
	}
	return nil
}

func (c *unionCap) walk(w *walker, at int) error {
	disc := abi.LoadInt(unsafe.Pointer(&w.buf[at+int(c.tagOffset)]), c.tagKind)
	if !c.declared(disc) {
		err := errors.InvalidDiscriminant(errors.PhaseDecode, nil, disc)
		err.Offset = at + int(c.tagOffset)
		return err
	}
	for i := range c.fields {
		f := &c.fields[i]
		if f.Tag {
			continue
		}
		if !f.activeFor(disc) {
			w.clear(at+int(f.Offset), f.Cap.HeadSize())
			continue
		}
		if !f.Cap.checked() {
			continue
		}
		if err := f.Cap.walk(w, at+int(f.Offset)); err != nil {
			return prefixPath(err, f.Name)
		}
	}
	return nil
}
