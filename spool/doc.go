// Package spool persists region snapshots as checksummed frames.
//
// Each frame is
//
//	[u32 LE body length][u8 flags][u32 LE crc32c of body][body]
//
// where the body is the region bytes, snappy compressed when the writer was
// created WithCompression and compression made them smaller. Frame metadata
// wraps region bytes and is not part of the record format: Reader.Next loads
// each body back into an aligned region ready for codec.Decode.
package spool
