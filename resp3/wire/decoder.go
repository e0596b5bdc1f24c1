package wire

import (
	"bytes"
	"strconv"

	"github.com/ynachi/respcore/resp3"
)

// DefaultMaxDepth is the decoder's default aggregate-nesting cap.
const DefaultMaxDepth = 30

// DefaultMaxBulkLength is the decoder's default cap on a single bulk
// frame's declared payload length, chosen to admit any realistic command
// payload while rejecting a wire-supplied length large enough to overflow
// int arithmetic or exhaust host memory before a single byte is read.
const DefaultMaxBulkLength = 512 * 1024 * 1024

// DefaultMaxArrayLength is the decoder's default cap on a single array
// frame's declared element count, chosen to reject a length large enough
// to force an oversized allocation before a single element is decoded.
const DefaultMaxArrayLength = 1 << 20

// Decoder consumes a StreamReader to produce resp3.Frame values. It is
// stateless across frames: it consults only the reader and its own
// configured bounds, never mutable per-frame state, between calls to
// Decode.
type Decoder struct {
	r              *StreamReader
	maxBulkLength  int64
	maxArrayLength int64
}

// DecoderOption configures a Decoder at construction time.
type DecoderOption func(*Decoder)

// WithMaxBulkLength overrides the cap on a bulk frame's declared payload
// length. Values <= 0 are ignored.
func WithMaxBulkLength(n int64) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxBulkLength = n
		}
	}
}

// WithMaxArrayLength overrides the cap on an array frame's declared
// element count. Values <= 0 are ignored.
func WithMaxArrayLength(n int64) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxArrayLength = n
		}
	}
}

// NewDecoder creates a Decoder reading frames from r, configured with any
// options provided. Unset bounds default to DefaultMaxBulkLength and
// DefaultMaxArrayLength.
func NewDecoder(r *StreamReader, opts ...DecoderOption) *Decoder {
	d := &Decoder{r: r, maxBulkLength: DefaultMaxBulkLength, maxArrayLength: DefaultMaxArrayLength}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads one RESP3 frame from the underlying StreamReader. depth is
// the current aggregate nesting level (0 at the entry point); maxDepth is
// the configured cap. Exceeding it is a fatal MaxDepth classification, not
// recoverable by reading more bytes.
func (d *Decoder) Decode(depth, maxDepth int) (resp3.Frame, error) {
	if depth >= maxDepth {
		return resp3.Frame{}, resp3.ErrMaxDepth
	}

	tag, err := d.r.ReadExact(1)
	if err != nil {
		return resp3.Frame{}, err
	}
	kind := resp3.KindFromTag(tag[0])

	switch {
	case kind.IsSimple():
		return d.decodeSimple(kind)
	case kind == resp3.KindInteger:
		return d.decodeInteger()
	case kind == resp3.KindBoolean:
		return d.decodeBoolean()
	case kind == resp3.KindNull:
		return d.decodeNull()
	case kind.IsBulk():
		return d.decodeBulk(kind)
	case kind == resp3.KindArray:
		return d.decodeArray(depth, maxDepth)
	default:
		return resp3.Frame{}, resp3.ErrInvalidFrame
	}
}

// readLine reads one CRLF-terminated line via ReadUntil(LF) and validates
// delimiter semantics: CR and LF appear only as the pair CRLF, never in
// isolation. It returns the line with the trailing CRLF stripped.
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.r.ReadUntil('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 {
		return nil, resp3.ErrIncompleteFrame
	}
	body := line[:len(line)-2]
	if line[len(line)-2] != '\r' {
		return nil, resp3.ErrInvalidFrame
	}
	if bytes.IndexByte(body, '\r') >= 0 {
		return nil, resp3.ErrInvalidFrame
	}
	return body, nil
}

func (d *Decoder) decodeSimple(kind resp3.FrameKind) (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	return resp3.Frame{Kind: kind, Bytes: append([]byte(nil), line...)}, nil
}

func (d *Decoder) decodeInteger() (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	n, perr := strconv.ParseInt(string(line), 10, 64)
	if perr != nil {
		return resp3.Frame{}, resp3.ErrAtoi
	}
	return resp3.Frame{Kind: resp3.KindInteger, Int: n}, nil
}

func (d *Decoder) decodeBoolean() (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	if len(line) != 1 || (line[0] != 't' && line[0] != 'f') {
		return resp3.Frame{}, resp3.ErrInvalidFrame
	}
	return resp3.Frame{Kind: resp3.KindBoolean, Bool: line[0] == 't'}, nil
}

func (d *Decoder) decodeNull() (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	if len(line) != 0 {
		return resp3.Frame{}, resp3.ErrInvalidFrame
	}
	return resp3.Frame{Kind: resp3.KindNull}, nil
}

// decodeBulk implements the length-prefixed bulk kinds. Per spec, a -1
// length prefix is the null-bulk convention (empty payload); a 0 length is
// rejected as protocol abuse, not accepted as an empty bulk string.
func (d *Decoder) decodeBulk(kind resp3.FrameKind) (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	length, perr := strconv.ParseInt(string(line), 10, 64)
	if perr != nil {
		return resp3.Frame{}, resp3.ErrAtoi
	}
	switch {
	case length == -1:
		return resp3.Frame{Kind: kind, Null: true}, nil
	case length <= 0:
		return resp3.Frame{}, resp3.ErrInvalidFrame
	case length > d.maxBulkLength:
		return resp3.Frame{}, resp3.ErrFrameTooLarge
	}

	payload, err := d.r.ReadExact(int(length) + 2)
	if err != nil {
		return resp3.Frame{}, err
	}
	if payload[len(payload)-2] != '\r' || payload[len(payload)-1] != '\n' {
		return resp3.Frame{}, resp3.ErrInvalidFrame
	}
	return resp3.Frame{Kind: kind, Bytes: append([]byte(nil), payload[:length]...)}, nil
}

func (d *Decoder) decodeArray(depth, maxDepth int) (resp3.Frame, error) {
	line, err := d.readLine()
	if err != nil {
		return resp3.Frame{}, err
	}
	length, perr := strconv.ParseInt(string(line), 10, 64)
	if perr != nil {
		return resp3.Frame{}, resp3.ErrAtoi
	}
	if length < 0 {
		return resp3.Frame{}, resp3.ErrInvalidFrame
	}
	if length > d.maxArrayLength {
		return resp3.Frame{}, resp3.ErrFrameTooLarge
	}

	elems := make([]resp3.Frame, 0, length)
	for i := int64(0); i < length; i++ {
		elem, derr := d.Decode(depth+1, maxDepth)
		if derr != nil {
			return resp3.Frame{}, derr
		}
		elems = append(elems, elem)
	}
	return resp3.Frame{Kind: resp3.KindArray, Array: elems}, nil
}
