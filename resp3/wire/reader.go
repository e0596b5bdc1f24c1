// Package wire implements the stream-buffered reader (C2) and RESP3
// decoder (C3) that turn an abstract byte-stream Source into typed
// resp3.Frame values.
package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/ynachi/respcore/resp3"
)

// defaultChunkSize is the per-pull read size and initial buffer sizing
// base, matching spec's documented default of 1024 bytes.
const defaultChunkSize = 1024

// Source is the abstract byte-stream collaborator consumed by a
// StreamReader and written to by a session driver: the Go-idiomatic
// translation of the spec's POSIX-shaped recv/send boundary interface
// (see SPEC_FULL.md section 4 for the rationale). Any net.Conn, net.Pipe
// half, or io.Pipe half satisfies it directly.
type Source interface {
	io.Reader
	io.Writer
}

// StreamReader owns a growable byte buffer in front of an abstract Source,
// and provides ReadUntil/ReadExact with explicit EOF accounting. It is not
// safe for concurrent use: a session owns its reader exclusively.
type StreamReader struct {
	src       Source
	chunkSize int

	buf []byte // buf[pos:] is the unread portion
	pos int

	// eofSeen latches true once the source has signalled end-of-stream.
	// It never reverts; the buffer still services reads until drained.
	eofSeen bool
}

// ReaderOption configures a StreamReader at construction time.
type ReaderOption func(*StreamReader)

// WithChunkSize overrides the per-pull read size. Values <= 0 are ignored.
func WithChunkSize(n int) ReaderOption {
	return func(r *StreamReader) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// NewStreamReader creates a StreamReader pulling from src, configured with
// any options provided. The initial buffer capacity is 2*chunk_size, per
// spec, avoiding allocation on the first pull and on a typical follow-up
// pull.
func NewStreamReader(src Source, opts ...ReaderOption) *StreamReader {
	r := &StreamReader{src: src, chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(r)
	}
	r.buf = make([]byte, 0, 2*r.chunkSize)
	return r
}

// fill pulls one chunk from the source into the buffer. It latches eofSeen
// when the source returns io.EOF, or when it returns fewer bytes than
// chunk_size (a RESP peer commonly writes a complete command in one short
// write, so a short read is treated as "drained for now").
func (r *StreamReader) fill() error {
	tmp := make([]byte, r.chunkSize)
	n, err := r.src.Read(tmp)
	if n > 0 {
		r.buf = append(r.buf, tmp[:n]...)
	}
	if err == io.EOF {
		r.eofSeen = true
		return nil
	}
	if err != nil {
		return errors.Wrap(resp3.ErrNetwork, err.Error())
	}
	if n < r.chunkSize {
		r.eofSeen = true
	}
	return nil
}

// compact drops already-consumed bytes from the front of the buffer so it
// does not grow without bound across many small reads.
func (r *StreamReader) compact() {
	if r.pos == 0 {
		return
	}
	if r.pos == len(r.buf) {
		r.buf = r.buf[:0]
		r.pos = 0
		return
	}
	if r.pos > cap(r.buf)/2 {
		n := copy(r.buf, r.buf[r.pos:])
		r.buf = r.buf[:n]
		r.pos = 0
	}
}

func (r *StreamReader) unread() []byte {
	return r.buf[r.pos:]
}

// ReadUntil returns the smallest prefix of the unread buffer that ends in
// delim, inclusive, consuming it. If delim is not present, it pulls chunks
// from the source and retries until found, EOF, or a network error.
func (r *StreamReader) ReadUntil(delim byte) ([]byte, error) {
	for {
		if idx := bytes.IndexByte(r.unread(), delim); idx >= 0 {
			end := r.pos + idx + 1
			out := append([]byte(nil), r.buf[r.pos:end]...)
			r.pos = end
			r.compact()
			return out, nil
		}
		if r.eofSeen {
			if len(r.unread()) == 0 {
				return nil, resp3.ErrEOF
			}
			return nil, resp3.ErrIncompleteFrame
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// ReadExact returns exactly the next n bytes, consuming them, pulling from
// the source as needed. n must be positive.
func (r *StreamReader) ReadExact(n int) ([]byte, error) {
	for len(r.unread()) < n {
		if r.eofSeen {
			if len(r.unread()) == 0 {
				return nil, resp3.ErrEOF
			}
			return nil, resp3.ErrNotEnoughData
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
	out := append([]byte(nil), r.buf[r.pos:r.pos+n]...)
	r.pos += n
	r.compact()
	return out, nil
}

// Send passes buf through to the underlying source, for use by a session
// driver writing a response frame back to the peer.
func (r *StreamReader) Send(buf []byte) (int, error) {
	n, err := r.src.Write(buf)
	if err != nil {
		return n, errors.Wrap(resp3.ErrNetwork, err.Error())
	}
	return n, nil
}
