package codec

import (
	"reflect"
	"slices"
	"unsafe"

	"github.com/wippyai/region-codec/errors"
)

// Kind identifies the structural primitive a Capability implements.
type Kind uint8

const (
	KindScalar Kind = iota
	KindBool
	KindString
	KindSlice
	KindArray
	KindStruct
	KindPointer
	KindUnion
	KindSkip
)

var kindNames = [...]string{
	KindScalar:  "scalar",
	KindBool:    "bool",
	KindString:  "string",
	KindSlice:   "slice",
	KindArray:   "array",
	KindStruct:  "struct",
	KindPointer: "pointer",
	KindUnion:   "union",
	KindSkip:    "skip",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Capability describes how one Go type is placed into a region and recovered
// from it. Capabilities are built by a Compiler and are immutable afterwards.
//
// Encode and decode both traverse the same capability tree, so the order in
// which indirect payloads are written is the order in which they are found.
type Capability interface {
	Kind() Kind
	Type() reflect.Type
	// HeadSize is the size of the fixed in-place image of the type.
	HeadSize() uintptr
	Align() uintptr
	// Pure reports that the raw head copy is the complete encoding: no
	// reference slots, no payload and no bytes to clear.
	Pure() bool

	// encode canonicalizes the reference slots of the head at region offset
	// at (already copied from src) and appends the indirect payload.
	encode(e *encodeState, at int, src unsafe.Pointer) error
	// walk validates, and in patch mode fixes up, the head at buffer offset at.
	walk(w *walker, at int) error
	// measure returns the region offset reached after the payload of src,
	// starting from off. depth counts the recursive edges already followed.
	measure(depth, off int, src unsafe.Pointer) (int, error)
	// checked reports whether walk does anything for this type.
	checked() bool
}

type head struct {
	typ   reflect.Type
	size  uintptr
	align uintptr
}

func headOf(t reflect.Type) head {
	return head{typ: t, size: t.Size(), align: uintptr(t.Align())}
}

func (h *head) Type() reflect.Type { return h.typ }
func (h *head) HeadSize() uintptr  { return h.size }
func (h *head) Align() uintptr     { return h.align }

// scalarCap covers integers, floats and complex numbers: raw bytes, no payload.
type scalarCap struct{ head }

func (*scalarCap) Kind() Kind    { return KindScalar }
func (*scalarCap) Pure() bool    { return true }
func (*scalarCap) checked() bool { return false }

// boolCap is a scalar whose byte must be 0 or 1 to be a valid Go bool.
type boolCap struct{ head }

func (*boolCap) Kind() Kind    { return KindBool }
func (*boolCap) Pure() bool    { return true }
func (*boolCap) checked() bool { return true }

// stringCap: head {slot, len}, payload len bytes without alignment.
type stringCap struct{ head }

func (*stringCap) Kind() Kind    { return KindString }
func (*stringCap) Pure() bool    { return false }
func (*stringCap) checked() bool { return true }

// sliceCap: head {slot, len, cap}, payload is len element heads followed by
// each element's payload in index order.
type sliceCap struct {
	head
	elem Capability
}

func (*sliceCap) Kind() Kind    { return KindSlice }
func (*sliceCap) Pure() bool    { return false }
func (*sliceCap) checked() bool { return true }

// arrayCap: N element heads inline.
type arrayCap struct {
	head
	elem Capability
	n    int
}

func (*arrayCap) Kind() Kind { return KindArray }

func (c *arrayCap) Pure() bool { return c.n == 0 || c.elem.Pure() }

func (c *arrayCap) checked() bool { return c.n > 0 && c.elem.checked() }

// pointerCap: head {slot}, payload is the pointee head and its payload.
type pointerCap struct {
	head
	elem Capability
}

func (*pointerCap) Kind() Kind    { return KindPointer }
func (*pointerCap) Pure() bool    { return false }
func (*pointerCap) checked() bool { return true }

// skipCap is a field excluded with region:"-". Its bytes are cleared in the
// region and it is never traversed.
type skipCap struct{ head }

func (*skipCap) Kind() Kind    { return KindSkip }
func (*skipCap) Pure() bool    { return false }
func (*skipCap) checked() bool { return true }

// Field describes one struct field as placed in a head.
type Field struct {
	Cap    Capability
	Name   string
	Offset uintptr
	Tag    bool
	Cases  []uint64 // union cases that activate the field; nil means always active
}

func (f *Field) activeFor(disc uint64) bool {
	return f.Cases == nil || slices.Contains(f.Cases, disc)
}

// structCap: field heads in declared order, payloads in declared order.
type structCap struct {
	head
	fields   []Field
	pure     bool
	needWalk bool
}

func (*structCap) Kind() Kind { return KindStruct }

func (c *structCap) Pure() bool { return c.pure }

func (c *structCap) checked() bool { return c.needWalk }

// unionCap is a struct with one discriminant field. Fields carrying case
// sets are only present when the discriminant matches.
type unionCap struct {
	structCap
	tagKind   reflect.Kind
	tagOffset uintptr
	cases     []uint64 // every declared discriminant
}

func (*unionCap) Kind() Kind    { return KindUnion }
func (*unionCap) checked() bool { return true }

func (c *unionCap) declared(disc uint64) bool {
	return slices.Contains(c.cases, disc)
}

// deferredCap stands in for a type whose compilation is still in progress.
// It only appears on recursive edges, which always pass through a slice or
// pointer, so the resolved type always has payload.
type deferredCap struct {
	head
	target Capability
}

func (d *deferredCap) Kind() Kind {
	if d.target != nil {
		return d.target.Kind()
	}
	return KindStruct
}

func (d *deferredCap) Pure() bool { return false }

func (d *deferredCap) checked() bool { return true }

// Every pass through a recursive edge counts against MaxDepth, so a cyclic
// value fails with KindOverflow.
func (d *deferredCap) encode(e *encodeState, at int, src unsafe.Pointer) error {
	if e.depth >= MaxDepth {
		return d.tooDeep(errors.PhaseEncode)
	}
	e.depth++
	err := d.target.encode(e, at, src)
	e.depth--
	return err
}

func (d *deferredCap) walk(w *walker, at int) error {
	if w.depth >= MaxDepth {
		return d.tooDeep(errors.PhaseDecode)
	}
	w.depth++
	err := d.target.walk(w, at)
	w.depth--
	return err
}

func (d *deferredCap) measure(depth, off int, src unsafe.Pointer) (int, error) {
	if depth >= MaxDepth {
		return 0, d.tooDeep(errors.PhaseEncode)
	}
	return d.target.measure(depth+1, off, src)
}

func (d *deferredCap) tooDeep(phase errors.Phase) *errors.Error {
	err := errors.Overflow(phase, nil, "reference depth", MaxDepth)
	err.GoType = d.typ.String()
	return err
}

// resolve strips a deferred wrapper.
func resolve(c Capability) Capability {
	if d, ok := c.(*deferredCap); ok && d.target != nil {
		return d.target
	}
	return c
}

var (
	_ Capability = (*scalarCap)(nil)
	_ Capability = (*boolCap)(nil)
	_ Capability = (*stringCap)(nil)
	_ Capability = (*sliceCap)(nil)
	_ Capability = (*arrayCap)(nil)
	_ Capability = (*pointerCap)(nil)
	_ Capability = (*skipCap)(nil)
	_ Capability = (*structCap)(nil)
	_ Capability = (*unionCap)(nil)
	_ Capability = (*deferredCap)(nil)
)
