package resp3

import (
	"io"

	"github.com/pkg/errors"
)

// Error taxonomy classifying every way a decode or buffered read can fail.
// Every internal failure surfaced by resp3/wire classifies into exactly one
// of these sentinels; callers compare with errors.Is.
var (
	// ErrEOF reports that the source drained with the buffer empty: the
	// peer closed cleanly between frames. ErrEOF is io.EOF itself so
	// callers already checking for io.EOF at a read boundary keep working.
	ErrEOF = io.EOF

	// ErrIncompleteFrame reports that the peer closed (or the source
	// drained) mid-frame, with unread bytes that never produced a match
	// for the delimiter being sought.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrNotEnoughData reports that read_exact could not be satisfied
	// before EOF latched.
	ErrNotEnoughData = errors.New("not enough data")

	// ErrInvalidFrame reports that wire content violates RESP3: a bare CR
	// or LF inside a simple payload, a malformed boolean, a zero-length
	// bulk, a malformed bulk trailer, or an unrecognised tag byte.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrAtoi reports that a decimal field (integer payload, bulk length,
	// array length) failed to parse.
	ErrAtoi = errors.New("cannot convert string to integer")

	// ErrMaxDepth reports that aggregate nesting exceeded the configured
	// cap. Reading more bytes cannot cure it, but like Invalid it is
	// recoverable per frame (see IsTerminal).
	ErrMaxDepth = errors.New("reached frame nesting limit")

	// ErrFrameTooLarge reports that a bulk payload length or array
	// element count claimed by the wire exceeds the decoder's configured
	// maximum, rejected before any allocation or read sized by that claim
	// is attempted. Recoverable per frame, like Invalid.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrNetwork reports a non-recoverable I/O error from the byte
	// source.
	ErrNetwork = errors.New("network error")
)

// IsTerminal reports whether err should end the session rather than elicit
// a SimpleError reply and continued reading. Eof, IncompleteFrame,
// NotEnoughData, and Network all terminate the session; Invalid, Atoi,
// MaxDepth, and FrameTooLarge are recoverable per frame.
func IsTerminal(err error) bool {
	switch {
	case errors.Is(err, ErrEOF),
		errors.Is(err, ErrIncompleteFrame),
		errors.Is(err, ErrNotEnoughData),
		errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}
