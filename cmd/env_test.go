package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignalContextCancelsOnInterrupt(t *testing.T) {
	ctx, stop := signalContext(context.Background())
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGINT")
	}
}

func TestSignalContextStopCancels(t *testing.T) {
	ctx, stop := signalContext(context.Background())
	stop()
	require.Error(t, ctx.Err())
}
