package format

import (
	"encoding/binary"

	"github.com/joshuapare/fwheap/internal/buf"
)

// Little-endian integer codecs for header fields. The board is little-endian,
// and fixing the byte order keeps persisted heap images portable between the
// host tool and the target.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in
// little-endian format. Returns 0 when fewer than 4 bytes remain.
func ReadU32(b []byte, off int) uint32 {
	return buf.U32LE(b[off:])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in
// little-endian format. Returns 0 when fewer than 8 bytes remain.
func ReadU64(b []byte, off int) uint64 {
	return buf.U64LE(b[off:])
}
