//go:build unix

package signalhandler

import (
	"context"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOptimalProcs(t *testing.T) {
	n := GetOptimalProcs()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, runtime.GOMAXPROCS(0))
}

func TestSetupHandler_CancelsOnSignal(t *testing.T) {
	ctx, stop := SetupHandler(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}
}

func TestSetupHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupHandler(parent)
	defer stop()
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
