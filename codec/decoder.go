package codec

import (
	"unsafe"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"github.com/wippyai/region-codec/errors"
)

// emptyData is the address given to present references with no payload:
// zero-length slices and pointers to zero-size values.
var emptyData uint64

func emptyAddr() uintptr {
	return uintptr(unsafe.Pointer(&emptyData))
}

// locateHead returns the offset of the record head in buf. Leading padding is
// derived from the absolute address of buf.
func locateHead(c Capability, buf []byte) (int, error) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	at := abi.PadFor(base, c.Align())
	need := at + int(c.HeadSize())
	if len(buf) < need {
		return 0, errors.TruncatedHead(c.Type().String(), need, len(buf))
	}
	return at, nil
}

// verifyRecord validates the record at the front of buf without writing to
// it and returns the head offset and the record end.
func verifyRecord(c Capability, buf []byte) (at, end int, err error) {
	at, err = locateHead(c, buf)
	if err != nil {
		return 0, 0, err
	}
	end = at + int(c.HeadSize())
	if !c.checked() {
		return at, end, nil
	}
	w := getWalker(buf)
	w.cursor = end
	err = c.walk(w, at)
	end = w.cursor
	putWalker(w)
	if err != nil {
		return 0, 0, withType(err, c)
	}
	return at, end, nil
}

// decodeRecord validates the record at the front of buf and then fixes it up
// in place. buf is left untouched when validation fails.
func decodeRecord(c Capability, buf []byte) (unsafe.Pointer, int, error) {
	at, end, err := verifyRecord(c, buf)
	if err != nil {
		return nil, 0, err
	}
	if c.checked() {
		w := getWalker(buf)
		w.cursor = at + int(c.HeadSize())
		w.patch = true
		err = c.walk(w, at)
		putWalker(w)
		if err != nil {
			// Validation covered every check the patch pass makes.
			return nil, 0, withType(err, c)
		}
	}
	if c.HeadSize() == 0 {
		return unsafe.Pointer(&emptyData), end, nil
	}
	return unsafe.Pointer(&buf[at]), end, nil
}

func withType(err error, c Capability) error {
	if e, ok := err.(*errors.Error); ok && e.GoType == "" {
		e.GoType = c.Type().String()
	}
	return err
}
