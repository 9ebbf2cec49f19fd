package wasmmem

import "encoding/binary"

const (
	sectionMemory = 0x05
	sectionExport = 0x07
	kindMemory    = 0x02
	limitsHasMax  = 0x01
)

// memoryModule encodes a core module whose only content is one linear memory
// with the given page limits, exported under name.
func memoryModule(name string, minPages, maxPages uint32) []byte {
	out := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

	mem := []byte{1, limitsHasMax}
	mem = binary.AppendUvarint(mem, uint64(minPages))
	mem = binary.AppendUvarint(mem, uint64(maxPages))
	out = appendSection(out, sectionMemory, mem)

	exp := binary.AppendUvarint([]byte{1}, uint64(len(name)))
	exp = append(exp, name...)
	exp = append(exp, kindMemory, 0)
	out = appendSection(out, sectionExport, exp)

	return out
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = binary.AppendUvarint(out, uint64(len(body)))
	return append(out, body...)
}
