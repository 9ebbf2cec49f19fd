// Package regioncodec places nested Go values into one contiguous byte region
// and recovers them later as borrowed views without allocation or re-parsing.
//
// Encoding copies a value's native memory image (its "head") verbatim and
// appends the out-of-line payload its strings, slices and pointers refer to.
// Decoding reinterprets the head in place and rewrites ("fixes up") each
// reference slot so it points at the payload inside the same region.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	regioncodec/         Root package with the Store interface
//	├── codec/           Layout capabilities, encode engine, decode/fixup engine
//	├── region/          Growable aligned byte region and explicit region pool
//	├── wasmmem/         Region store backed by a page-capped wazero linear memory
//	├── spool/           Disk round-trip of region snapshots (optional snappy)
//	├── errors/          Structured error types
//	└── cmd/regionview/  Inspector CLI
//
// # Quick Start
//
//	type Log struct {
//	    Host   string
//	    Status uint16
//	    Tags   []string
//	}
//
//	c, err := codec.New[Log]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := region.New()
//	if err := c.Encode(r, &Log{Host: "example.com", Tags: []string{"a"}}); err != nil {
//	    log.Fatal(err)
//	}
//
//	view, rest, err := c.Decode(r.Bytes())
//	fmt.Println(view.Host, len(rest)) // "example.com 0"
//
// # Record Format
//
//	[pad to align(T)] head(T) payload(T)
//
// There is no length prefix, magic number or schema tag. A batch is the plain
// concatenation of records; record boundaries are recomputed by decoding.
// Encoder and decoder must share the same binary (same field order, widths,
// padding and word size); no translation is performed.
//
// # Lifetimes
//
// A decoded view aliases the region. It is valid while the region is alive,
// unmodified, and not reallocated. Views are read-only: assigning to a
// pointer-bearing field of a view is not supported. Decoding the same bytes
// twice is a contract violation.
//
// # Thread Safety
//
// Compiled capabilities and codecs are safe for concurrent use. Regions are
// not; decoding mutates the region and needs exclusive access.
package regioncodec
