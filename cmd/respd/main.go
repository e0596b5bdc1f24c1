// Command respd runs the RESP3 framing core as a standalone TCP server: it
// wires server.Server to a real listener and nothing more. It implements no
// command interpretation and no storage — every well-formed frame it
// receives is echoed back verbatim.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ynachi/respcore/server"
)

func main() {
	addr := flag.String("addr", server.DefaultConfig.Address, "TCP address to listen on")
	chunkSize := flag.Int("chunk-size", server.DefaultConfig.ChunkSize, "per-read chunk size in bytes")
	sessionMaxDepth := flag.Int("session-max-depth", server.DefaultConfig.SessionMaxDepth, "aggregate-nesting cap applied by each session (the only decode path this binary exposes)")
	terminateOnInvalid := flag.Bool("terminate-on-invalid", server.DefaultConfig.TerminateOnInvalid, "end a session on its first recoverable decode error instead of replying and continuing")
	verbose := flag.Bool("verbose", false, "log every accept/session/frame event instead of only errors")
	flag.Parse()

	cfg := &server.Config{
		Address:            *addr,
		ChunkSize:          *chunkSize,
		SessionMaxDepth:    *sessionMaxDepth,
		TerminateOnInvalid: *terminateOnInvalid,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trace := server.DefaultLoggingHooks
	if *verbose {
		trace = server.DiagnosticLoggingHooks
	}
	ctx = server.WithTrace(ctx, trace)

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("respd: %v\n", err)
	}
	log.Printf("respd: listening on %s\n", srv.Addr())

	<-ctx.Done()
	log.Println("respd: shutting down")
	if err := srv.Close(); err != nil {
		log.Printf("respd: close: %v\n", err)
	}
}
