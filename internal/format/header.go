package format

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/buf"
)

// Header is the decoded form of one block header.
//
// Offset is the header's position relative to the aligned region base; the
// payload starts HeaderSize bytes later and spans Size bytes.
type Header struct {
	Offset    uintptr
	Size      uintptr
	Next      uintptr
	FreeCount uint8
	Magic     uint32
}

// Free reports whether the block has been released.
func (h Header) Free() bool { return h.FreeCount != 0 }

// Last reports whether the header terminates the chain.
func (h Header) Last() bool { return h.Next == TerminalLink }

// Payload returns the offset of the first payload byte.
func (h Header) Payload() uintptr { return h.Offset + HeaderSize }

// End returns the offset one past the payload, or ok = false on overflow.
func (h Header) End() (uintptr, bool) {
	end, ok := buf.AddUintptr(h.Offset, HeaderSize)
	if !ok {
		return 0, false
	}
	return buf.AddUintptr(end, h.Size)
}

// ReadHeader decodes the header at off. The offset must be aligned and the
// whole header must fit in b; the magic canary must match.
func ReadHeader(b []byte, off uintptr) (Header, error) {
	if !IsAligned(off) {
		return Header{}, fmt.Errorf("header at %d: %w", off, ErrMisaligned)
	}
	if _, err := buf.CheckRange(len(b), off, HeaderSize); err != nil {
		return Header{}, fmt.Errorf("header at %d: %w (%v)", off, ErrTruncated, err)
	}
	o := int(off)
	h := Header{
		Offset:    off,
		Size:      uintptr(ReadU64(b, o+HeaderSizeOffset)),
		Next:      uintptr(ReadU64(b, o+HeaderNextOffset)),
		FreeCount: b[o+HeaderFreeCountOffset],
		Magic:     ReadU32(b, o+HeaderMagicOffset),
	}
	if h.Magic != HeaderMagic {
		return h, fmt.Errorf("header at %d: %w (got 0x%08X)", off, ErrSignatureMismatch, h.Magic)
	}
	return h, nil
}

// WriteHeader encodes h at h.Offset, stamping the magic canary and clearing
// the reserved bytes.
func WriteHeader(b []byte, h Header) error {
	if !IsAligned(h.Offset) || !IsAligned(h.Size) {
		return fmt.Errorf("header at %d: %w", h.Offset, ErrMisaligned)
	}
	if _, err := buf.CheckRange(len(b), h.Offset, HeaderSize); err != nil {
		return fmt.Errorf("header at %d: %w (%v)", h.Offset, ErrTruncated, err)
	}
	off := int(h.Offset)
	PutU64(b, off+HeaderSizeOffset, uint64(h.Size))
	PutU64(b, off+HeaderNextOffset, uint64(h.Next))
	b[off+HeaderFreeCountOffset] = h.FreeCount
	b[off+HeaderReservedOffset] = 0
	b[off+HeaderReservedOffset+1] = 0
	b[off+HeaderReservedOffset+2] = 0
	PutU32(b, off+HeaderMagicOffset, HeaderMagic)
	return nil
}
