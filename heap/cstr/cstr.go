// Package cstr stores display text on the heap as NUL-terminated code page
// 437 strings, the form the board's character display consumes.
//
// Runes outside code page 437 are stored as '?'.
package cstr

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/fwheap/heap/alloc"
)

// Replacement is stored for runes code page 437 cannot represent.
const Replacement = '?'

var (
	// ErrNoSpace indicates the heap could not hold the string.
	ErrNoSpace = errors.New("cstr: out of heap space")
	// ErrEmbeddedNUL indicates a string that would terminate early.
	ErrEmbeddedNUL = errors.New("cstr: string contains NUL")
	// ErrUnterminated indicates a block with no NUL inside its payload.
	ErrUnterminated = errors.New("cstr: missing NUL terminator")
	// ErrBadPtr indicates a pointer that does not name an in-use block.
	ErrBadPtr = errors.New("cstr: bad pointer")
)

// Heap is the slice of the allocator cstr needs.
type Heap interface {
	Alloc(n uintptr) alloc.Ptr
	Realloc(p alloc.Ptr, n uintptr) alloc.Ptr
	Bytes(p alloc.Ptr) []byte
}

var cp437 = charmap.CodePage437

// Encode converts s to code page 437 bytes without a terminator.
func Encode(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, ErrEmbeddedNUL
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp437.EncodeRune(r)
		if !ok {
			b = Replacement
		}
		out = append(out, b)
	}
	return out, nil
}

// Decode converts code page 437 bytes to a string, stopping at the first NUL.
func Decode(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(cp437.DecodeByte(c))
	}
	return sb.String()
}

// Store copies s onto the heap and returns its block.
func Store(h Heap, s string) (alloc.Ptr, error) {
	enc, err := Encode(s)
	if err != nil {
		return alloc.Null, err
	}
	p := h.Alloc(uintptr(len(enc)) + 1)
	if p == alloc.Null {
		return alloc.Null, fmt.Errorf("%w: %d bytes", ErrNoSpace, len(enc)+1)
	}
	write(h.Bytes(p), enc)
	return p, nil
}

// Replace overwrites the string at p with s, resizing the block as needed.
// The returned pointer replaces p. On failure p is left untouched.
func Replace(h Heap, p alloc.Ptr, s string) (alloc.Ptr, error) {
	if p == alloc.Null {
		return Store(h, s)
	}
	if h.Bytes(p) == nil {
		return alloc.Null, fmt.Errorf("%w: 0x%X", ErrBadPtr, uintptr(p))
	}
	enc, err := Encode(s)
	if err != nil {
		return alloc.Null, err
	}
	q := h.Realloc(p, uintptr(len(enc))+1)
	if q == alloc.Null {
		return alloc.Null, fmt.Errorf("%w: %d bytes", ErrNoSpace, len(enc)+1)
	}
	write(h.Bytes(q), enc)
	return q, nil
}

// Load reads the string stored at p.
func Load(h Heap, p alloc.Ptr) (string, error) {
	b := h.Bytes(p)
	if b == nil {
		return "", fmt.Errorf("%w: 0x%X", ErrBadPtr, uintptr(p))
	}
	if bytes.IndexByte(b, 0) < 0 {
		return "", ErrUnterminated
	}
	return Decode(b), nil
}

// write copies enc into dst and zeroes the rest, which always includes the
// terminator since dst holds at least len(enc)+1 bytes.
func write(dst, enc []byte) {
	n := copy(dst, enc)
	clear(dst[n:])
}
