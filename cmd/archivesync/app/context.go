package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals stop the CLI when no other set is given.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ContextWithSignals returns a child of parent that is cancelled on the
// first of sigs (SIGINT or SIGTERM when none are given). After that the
// signals are released, so a second interrupt kills the process.
func ContextWithSignals(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	if len(sigs) == 0 {
		sigs = shutdownSignals
	}
	ctx, stop := signal.NotifyContext(parent, sigs...)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
