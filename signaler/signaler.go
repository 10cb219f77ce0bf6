package signaler

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterrupt returns a channel that receives interrupt and terminate
// signals
func WaitForInterrupt() chan os.Signal {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	return interrupt
}

// WithInterrupt returns a copy of parent that is cancelled on the first
// interrupt or terminate signal
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	interrupt := WaitForInterrupt()
	go func() {
		defer signal.Stop(interrupt)
		select {
		case <-interrupt:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
