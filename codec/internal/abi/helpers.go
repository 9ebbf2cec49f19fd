package abi

import (
	"math"
	"reflect"
	"unsafe"
)

const (
	// SlotNil marks an absent reference in an encoded head.
	SlotNil uintptr = 0
	// SlotPresent marks a reference whose payload follows in the region.
	SlotPresent uintptr = 1
)

const (
	MaxStringSize  = 1 << 30 // 1 GB max string size
	MaxSliceLength = 1 << 27 // 128M max elements
	MaxAlloc       = 1 << 30 // 1 GB max single payload
	MaxDepth       = 1 << 10 // nested recursive-type references per record
)

// WordSize is the size of a reference slot.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// SafeMul returns a*b, or false if the product overflows or either operand is negative.
func SafeMul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if b != 0 && a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// SafeAdd returns a+b, or false on overflow of non-negative operands.
func SafeAdd(a, b int) (int, bool) {
	if a < 0 || b < 0 || a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// TypeName returns "nil" for nil types, avoiding a nil dereference.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}

// AlignTo rounds offset up to a multiple of align. align must be a power of two.
func AlignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// PadFor returns the padding needed to bring addr up to align.
func PadFor(addr, align uintptr) int {
	return int(AlignTo(addr, align) - addr)
}

// Word reads the pointer-sized word at off. off must be word aligned.
func Word(buf []byte, off int) uintptr {
	return *(*uintptr)(unsafe.Pointer(&buf[off]))
}

// PutWord writes a pointer-sized word at off. off must be word aligned.
func PutWord(buf []byte, off int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(&buf[off])) = v
}

// Int reads the int-sized word at off.
func Int(buf []byte, off int) int {
	return *(*int)(unsafe.Pointer(&buf[off]))
}

// PutInt writes an int-sized word at off.
func PutInt(buf []byte, off int, v int) {
	*(*int)(unsafe.Pointer(&buf[off])) = v
}

// Bytes views size bytes at p.
func Bytes(p unsafe.Pointer, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), size)
}

// LoadInt reads an integer of the given kind at p and widens it to uint64.
// Signed values are sign-extended first.
func LoadInt(p unsafe.Pointer, kind reflect.Kind) uint64 {
	switch kind {
	case reflect.Int8:
		return uint64(*(*int8)(p))
	case reflect.Int16:
		return uint64(*(*int16)(p))
	case reflect.Int32:
		return uint64(*(*int32)(p))
	case reflect.Int64:
		return uint64(*(*int64)(p))
	case reflect.Int:
		return uint64(*(*int)(p))
	case reflect.Uint8:
		return uint64(*(*uint8)(p))
	case reflect.Uint16:
		return uint64(*(*uint16)(p))
	case reflect.Uint32:
		return uint64(*(*uint32)(p))
	case reflect.Uint64:
		return *(*uint64)(p)
	case reflect.Uint, reflect.Uintptr:
		return uint64(*(*uint)(p))
	}
	return 0
}

// IsSigned reports whether kind is a signed integer kind.
func IsSigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// IsInteger reports whether kind is an integer kind.
func IsInteger(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
