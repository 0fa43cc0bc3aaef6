package format

import "errors"

var (
	// ErrSignatureMismatch indicates a header's magic canary did not match.
	ErrSignatureMismatch = errors.New("format: header magic mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrMisaligned indicates a header offset or size off the alignment grid.
	ErrMisaligned = errors.New("format: misaligned header")
)
