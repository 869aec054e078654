package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler returns a context cancelled on SIGINT or SIGTERM. A second
// signal after the first is not intercepted and terminates the process.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (runtime.GOMAXPROCS(0) * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
