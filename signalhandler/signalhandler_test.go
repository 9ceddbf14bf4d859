package signalhandler

import (
	"context"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetOptimalProcs(t *testing.T) {
	n := GetOptimalProcs()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, runtime.NumCPU())
}

func TestSetupHandlerCancelsOnSignal(t *testing.T) {
	ctx, stop := SetupHandler(context.Background())
	defer stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}
}

func TestStopCancelsContext(t *testing.T) {
	ctx, stop := SetupHandler(context.Background())
	stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
