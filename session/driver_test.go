package session

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynachi/respcore/resp3"
	"github.com/ynachi/respcore/resp3/wire"
)

// pipeSource feeds Run from a fixed input buffer and records everything
// written back, so a test can assert on the full echo/error transcript.
type pipeSource struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func newPipeSource(input string) *pipeSource {
	return &pipeSource{in: bytes.NewReader([]byte(input))}
}

func (p *pipeSource) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipeSource) Write(b []byte) (int, error) { return p.out.Write(b) }

func newDriver(src *pipeSource) (*Driver, *wire.StreamReader) {
	r := wire.NewStreamReader(src, wire.WithChunkSize(1024))
	d := wire.NewDecoder(r)
	return NewDriver(r, d), r
}

func TestDriverEchoesWellFormedFrames(t *testing.T) {
	src := newPipeSource("*1\r\n$4\r\nPING\r\n:7\r\n")
	drv, _ := newDriver(src)

	err := drv.Run()
	require.NoError(t, err)
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n:7\r\n", src.out.String())
}

func TestDriverFiresDecodeAndEncodeHooks(t *testing.T) {
	src := newPipeSource(":7\r\n")
	drv, _ := newDriver(src)

	var decoded, encoded []resp3.Frame
	drv.OnDecode = func(f resp3.Frame) { decoded = append(decoded, f) }
	drv.OnEncode = func(f resp3.Frame) { encoded = append(encoded, f) }

	err := drv.Run()
	require.NoError(t, err)
	want := resp3.Frame{Kind: resp3.KindInteger, Int: 7}
	assert.Equal(t, []resp3.Frame{want}, decoded)
	assert.Equal(t, []resp3.Frame{want}, encoded)
}

func TestDriverTerminatesSilentlyOnCleanEOF(t *testing.T) {
	src := newPipeSource("")
	drv, _ := newDriver(src)

	err := drv.Run()
	assert.NoError(t, err)
	assert.Empty(t, src.out.String())
}

func TestDriverReportsInvalidAndContinues(t *testing.T) {
	// The driver does not resynchronise: after the '@' tag is rejected, each
	// of 'f', 'o', 'o', '\r', '\n' is read as its own unknown tag, and
	// OnError also observes the closing EOF.
	src := newPipeSource("@foo\r\n:9\r\n")
	drv, _ := newDriver(src)

	var seen []error
	drv.OnError = func(err error) { seen = append(seen, err) }

	err := drv.Run()
	require.NoError(t, err)
	assert.Equal(t, "-invalid frame\r\n-invalid frame\r\n-invalid frame\r\n-invalid frame\r\n-invalid frame\r\n:9\r\n", src.out.String())
	require.Len(t, seen, 6)
}

func TestDriverTerminateOnInvalidOptIn(t *testing.T) {
	src := newPipeSource("@foo\r\n:9\r\n")
	drv, _ := newDriver(src)
	drv.TerminateOnInvalid = true

	err := drv.Run()
	require.Error(t, err)
	assert.Empty(t, src.out.String())
}

func TestDriverTerminatesOnIncompleteFrame(t *testing.T) {
	src := newPipeSource(":5")
	drv, _ := newDriver(src)

	err := drv.Run()
	require.Error(t, err)
}

func TestDriverReportsDepthCapExceededAndContinues(t *testing.T) {
	// MaxDepth is recoverable per frame: each over-deep array header is
	// answered with a SimpleError and decoding resumes at its first element.
	src := newPipeSource("*2\r\n:1\r\n*1\r\n+Three\r\n")
	drv, _ := newDriver(src)
	drv.SetMaxDepth(1)

	err := drv.Run()
	require.NoError(t, err)
	assert.Equal(t, "-reached frame nesting limit\r\n:1\r\n-reached frame nesting limit\r\n+Three\r\n", src.out.String())
}

// failingWriteSource decodes fine but always fails to write the echo back,
// exercising the terminal path on a send error.
type failingWriteSource struct {
	in *bytes.Reader
}

func (f *failingWriteSource) Read(b []byte) (int, error) { return f.in.Read(b) }
func (f *failingWriteSource) Write([]byte) (int, error)  { return 0, io.ErrClosedPipe }

func TestDriverNetworkErrorOnSend(t *testing.T) {
	src := &failingWriteSource{in: bytes.NewReader([]byte(":1\r\n"))}
	r := wire.NewStreamReader(src, wire.WithChunkSize(1024))
	d := wire.NewDecoder(r)
	drv := NewDriver(r, d)

	var seen []error
	drv.OnError = func(err error) { seen = append(seen, err) }

	err := drv.Run()
	require.Error(t, err)
	require.Len(t, seen, 1)
}
