// Package codec places Go values into a contiguous region and recovers
// usable pointers to them without allocation or re-parsing.
//
// # Record Format
//
// A record is the native memory image of a value followed by everything the
// image refers to:
//
//	┌──────────┬──────────────┬──────────────────────────────────────┐
//	│ pad      │ head(T)      │ payload(T)                           │
//	│ to align │ Go layout    │ strings, element heads, pointees ... │
//	└──────────┴──────────────┴──────────────────────────────────────┘
//
// There is no length prefix, magic or schema tag. Batches are plain
// concatenations of records.
//
// Reference words inside a head (the data word of a string or slice, a
// pointer) hold a placeholder in the region: 0 for nil, SlotPresent when the
// payload follows. Decode rewrites them to addresses inside the buffer.
//
//	Type        Head                 Payload
//	──────────────────────────────────────────────────────────────
//	scalar      raw bytes            none
//	bool        raw byte (0 or 1)    none
//	string      {slot, len}          len bytes, unaligned
//	[]T         {slot, len, cap}     pad, len heads of T, then each payload
//	[N]T        N heads inline       each element payload in index order
//	*T          {slot}               pad, head of T, payload of T
//	struct      fields in order      field payloads in declared order
//	union       struct image         active field payloads in order
//
// # Struct Tags
//
//	region:"-"          excluded; bytes are cleared (maps, funcs, caches)
//	region:"tag"        integer discriminant of a tagged union
//	region:"case=1|2"   field present only for the listed discriminants
//
// # Usage
//
//	c := codec.MustNew[Log]()
//	r := region.New()
//	if err := c.Encode(r, &Log{Host: "example.com"}); err != nil { ... }
//
//	v, rest, err := c.Decode(r.Bytes())
//
// # Decoding
//
// Decode first validates the whole record without writing (bounds, lengths,
// bool bytes, discriminants, slot placeholders) and only then fixes it up.
// A rejected record leaves the buffer byte-identical. Verify runs the
// validation pass alone.
//
// Decoded views alias the buffer. They stay valid while the buffer is alive
// and unmodified; Region.Generation changes whenever that may no longer hold.
// A record may be decoded once: the fixed-up slots no longer hold
// placeholders, and a second decode reports errors.KindReentrant.
//
// # Layout Identity
//
// Heads are copied with the layout of the running binary. Producer and
// consumer must be the same build; there is no portability or schema
// evolution.
package codec
