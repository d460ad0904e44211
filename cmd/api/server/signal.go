package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// WithSignal returns a context canceled on the first of sigs, SIGINT and
// SIGTERM when none are given. context.Cause reports which signal arrived.
// The returned stop func releases the handler and cancels the context.
func WithSignal(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancelCause(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	go func() {
		select {
		case sig := <-sigCh:
			cancel(fmt.Errorf("received signal %s", sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel(context.Canceled)
	}
}
