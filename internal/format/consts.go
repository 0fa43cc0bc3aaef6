// Package format houses the on-arena layout of the heap's block headers:
// field offsets, alignment rules, and the little-endian codecs used to read
// and write them. It is kept free of allocator policy so the engine, the
// verifier, and the dumper all agree on a single description of the bytes.
package format

const (
	// Alignment is the platform's fundamental alignment. Region bases, header
	// offsets, and payload sizes are all multiples of it.
	Alignment = 8

	// AlignmentMask is the bitmask used for aligning to Alignment (Alignment - 1).
	AlignmentMask = Alignment - 1

	// HeaderSize is the size of a block header in bytes. It is itself a
	// multiple of Alignment so payloads start aligned.
	HeaderSize = 0x18

	// MinBlockSize is the smallest payload worth carving out as its own block.
	// Leftovers smaller than HeaderSize+MinBlockSize are absorbed instead of split.
	MinBlockSize = Alignment

	// MinHeapSize is the space one real block needs (header plus minimum payload).
	MinHeapSize = HeaderSize + MinBlockSize

	// MinRegionSize is the smallest usable region Setup accepts: the sentinel
	// header plus one minimum block.
	MinRegionSize = HeaderSize + MinHeapSize

	// TerminalLink marks the last header in the chain. Offset 0 always holds
	// the sentinel, so no live link can point there.
	TerminalLink = 0

	// MaxFreeCount is the saturation point of the free counter.
	MaxFreeCount = 0xFF
)

// Block header field offsets (little-endian).
//
//	Offset  Size  Description
//	0x00    8     Payload size in bytes (multiple of Alignment)
//	0x08    8     Region-relative offset of the next header, TerminalLink if last
//	0x10    1     Free counter: 0 = in use, >0 = released (saturating)
//	0x11    3     Reserved, zero
//	0x14    4     Magic canary
const (
	HeaderSizeOffset      = 0x00
	HeaderNextOffset      = 0x08
	HeaderFreeCountOffset = 0x10
	HeaderReservedOffset  = 0x11
	HeaderMagicOffset     = 0x14
)

// HeaderMagic is the canary stored in every header ("HEAP" little-endian).
// A mismatch means the bytes are not a header this allocator wrote.
const HeaderMagic uint32 = 0x50414548
