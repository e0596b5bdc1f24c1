// Package session implements the thin session driver (C4): a loop that
// decodes RESP3 frames from a wire.StreamReader/wire.Decoder pair, echoes
// well-formed frames back to the peer, and classifies every error into
// "respond and continue" or "terminate", per the error taxonomy in
// resp3.IsTerminal.
package session

import (
	"github.com/pkg/errors"

	"github.com/ynachi/respcore/resp3"
	"github.com/ynachi/respcore/resp3/wire"
)

// DefaultMaxDepth is the session driver's own aggregate-nesting cap, distinct
// from (and tighter than) wire.DefaultMaxDepth: the live session path uses a
// smaller cap than the decoder's general-purpose default.
const DefaultMaxDepth = 8

// Driver runs one connection's decode/echo loop to completion. It owns no
// state beyond its collaborators: a Driver is used for exactly one
// connection and discarded.
type Driver struct {
	decoder  *wire.Decoder
	reader   *wire.StreamReader
	maxDepth int

	// TerminateOnInvalid ends the session on the first recoverable decode
	// error (ErrInvalidFrame, ErrAtoi, ErrMaxDepth, or ErrFrameTooLarge)
	// instead of reporting a SimpleError and continuing. It defaults to false (the surviving canonical source's
	// behaviour); set it true when serving an adversarial network.
	TerminateOnInvalid bool

	// OnError, if non-nil, is called with every error the driver
	// observes (recoverable or terminal) before it decides how to act.
	// A nil OnError is a silent no-op.
	OnError func(error)

	// OnDecode, if non-nil, is called with every frame successfully
	// decoded, before it is echoed back. A nil OnDecode is a silent
	// no-op.
	OnDecode func(resp3.Frame)

	// OnEncode, if non-nil, is called with every frame about to be
	// written back to the peer. A nil OnEncode is a silent no-op.
	OnEncode func(resp3.Frame)
}

// NewDriver creates a Driver reading frames via r through d, with the
// session-path's default nesting cap. Use SetMaxDepth to override it.
func NewDriver(r *wire.StreamReader, d *wire.Decoder) *Driver {
	return &Driver{reader: r, decoder: d, maxDepth: DefaultMaxDepth}
}

// MaxDepth returns the configured nesting cap.
func (s *Driver) MaxDepth() int { return s.maxDepth }

// SetMaxDepth overrides the nesting cap. n must be positive.
func (s *Driver) SetMaxDepth(n int) {
	if n > 0 {
		s.maxDepth = n
	}
}

// Run decodes frames until the session ends. It returns nil when the peer
// closed cleanly (Eof); any other terminating condition is returned as an
// error for the caller to log. Run never panics on malformed input: every
// decode error is classified before Run decides whether to continue.
func (s *Driver) Run() error {
	for {
		frame, err := s.decoder.Decode(0, s.maxDepth)
		if err != nil {
			if s.OnError != nil {
				s.OnError(err)
			}
			if errors.Is(err, resp3.ErrEOF) {
				return nil
			}
			if resp3.IsTerminal(err) {
				return err
			}
			if s.TerminateOnInvalid {
				return err
			}
			if sendErr := s.reportError(err); sendErr != nil {
				return sendErr
			}
			continue
		}

		if s.OnDecode != nil {
			s.OnDecode(frame)
		}
		if s.OnEncode != nil {
			s.OnEncode(frame)
		}
		if _, sendErr := s.reader.Send(frame.AsBytes()); sendErr != nil {
			if s.OnError != nil {
				s.OnError(sendErr)
			}
			return sendErr
		}
	}
}

// reportError writes a SimpleError frame carrying err's mnemonic back to the
// peer, so the caller can recover and keep reading. A failure to write that
// frame is itself terminal: the connection is no longer usable.
func (s *Driver) reportError(err error) error {
	reply := resp3.Frame{Kind: resp3.KindSimpleError, Bytes: []byte(err.Error())}
	_, sendErr := s.reader.Send(reply.AsBytes())
	return sendErr
}
