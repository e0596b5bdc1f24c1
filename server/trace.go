package server

import (
	"context"
	"log"
	"net"
	"reflect"

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/ynachi/respcore/resp3"
)

// unique type to prevent assignment collision with other packages' context keys.
type traceContextKey struct{}

// ContextTrace returns the Trace associated with ctx, with every field a
// caller left nil filled in from NoOpTrace, so every hook is always
// directly callable without a nil check.
func ContextTrace(ctx context.Context) *Trace {
	trace, ok := ctx.Value(traceContextKey{}).(*Trace)
	if !ok || trace == nil {
		return NoOpTrace
	}
	_ = mergo.Merge(trace, NoOpTrace)
	return trace
}

// WithTrace returns a new context based on ctx whose Trace hooks are trace,
// composed on top of any hooks already registered on ctx: hooks in trace run
// before previously registered ones of the same name, and a nil field in
// trace falls back to the previously registered hook rather than to a no-op.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	if trace == nil {
		panic("nil trace")
	}
	old := ContextTrace(ctx)
	trace.compose(old)
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// Trace defines the optional instrumentation points fired around a
// connection's lifecycle. Every field may be nil; a nil field is simply not
// called. Trace carries no correctness obligation — it exists purely for
// observability.
type Trace struct {
	// Accepted is called after an Accept() call completes, with err
	// indicating whether it was successful.
	Accepted func(conn net.Conn, err error)

	// SessionStarted is called when a session driver begins serving id.
	SessionStarted func(id uuid.UUID, conn net.Conn)

	// SessionEnded is called when a session driver returns, with err
	// indicating whether it ended on a terminal error.
	SessionEnded func(id uuid.UUID, err error)

	// FrameDecoded is called after every successful decode.
	FrameDecoded func(id uuid.UUID, frame resp3.Frame)

	// FrameEncoded is called before a frame is written back to the peer.
	FrameEncoded func(id uuid.UUID, frame resp3.Frame)

	// Error is called after any error condition has been classified,
	// recoverable or terminal.
	Error func(id uuid.UUID, context string, err error)
}

// compose modifies t such that it respects the previously-registered hooks
// in old: a nil field of t is filled from old, and a non-nil field of t
// calls its own hook before delegating to old's hook of the same name.
func (t *Trace) compose(old *Trace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		if tf.Type().Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		tfCopy := reflect.ValueOf(tf.Interface())
		hookType := tf.Type()
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			tfCopy.Call(args)
			return of.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}

// NoOpTrace is the trace every hook resolves to when a caller never
// registers one: every field a real func that does nothing, so a hook is
// always directly callable without a nil check.
var NoOpTrace = &Trace{
	Accepted:       func(conn net.Conn, err error) {},
	SessionStarted: func(id uuid.UUID, conn net.Conn) {},
	SessionEnded:   func(id uuid.UUID, err error) {},
	FrameDecoded:   func(id uuid.UUID, frame resp3.Frame) {},
	FrameEncoded:   func(id uuid.UUID, frame resp3.Frame) {},
	Error:          func(id uuid.UUID, context string, err error) {},
}

// DefaultLoggingHooks logs only errors, via the standard log package.
var DefaultLoggingHooks = &Trace{
	Error: func(id uuid.UUID, context string, err error) {
		log.Printf("session:%s context:%s err:%v\n", id, context, err)
	},
}

// DiagnosticLoggingHooks logs the full connection lifecycle, useful when
// developing or debugging against an adversarial peer.
var DiagnosticLoggingHooks = &Trace{
	Accepted: func(conn net.Conn, err error) {
		log.Printf("accepted remote:%v err:%v\n", remoteAddr(conn), err)
	},
	SessionStarted: func(id uuid.UUID, conn net.Conn) {
		log.Printf("session:%s started remote:%v\n", id, remoteAddr(conn))
	},
	SessionEnded: func(id uuid.UUID, err error) {
		log.Printf("session:%s ended err:%v\n", id, err)
	},
	FrameDecoded: func(id uuid.UUID, frame resp3.Frame) {
		log.Printf("session:%s decoded kind:%s\n", id, frame.Kind)
	},
	FrameEncoded: func(id uuid.UUID, frame resp3.Frame) {
		log.Printf("session:%s encoded kind:%s\n", id, frame.Kind)
	},
	Error: func(id uuid.UUID, context string, err error) {
		log.Printf("session:%s context:%s err:%v\n", id, context, err)
	},
}

func remoteAddr(conn net.Conn) net.Addr {
	if conn == nil {
		return nil
	}
	return conn.RemoteAddr()
}
