//go:build unix

package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/aretw0/playground/internal/cli"
	"github.com/aretw0/playground/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContext_CancelLeavesNoSignal(t *testing.T) {
	ctx := cli.NewSignalContext(context.Background())
	ctx.Cancel()

	<-ctx.Done()
	assert.Nil(t, ctx.Signal())

	var buf bytes.Buffer
	ctx.LogStop(logging.NewWriter(&buf, slog.LevelInfo, logging.FormatText))
	assert.Empty(t, buf.String())
}

func TestSignalContext_RecordsSignal(t *testing.T) {
	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
	assert.Equal(t, syscall.SIGTERM, ctx.Signal())

	var buf bytes.Buffer
	ctx.LogStop(logging.NewWriter(&buf, slog.LevelInfo, logging.FormatText))
	assert.Contains(t, buf.String(), "Stopped by signal")
	assert.Contains(t, buf.String(), "terminated")
}
