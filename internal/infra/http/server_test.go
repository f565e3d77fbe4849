package http

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestShutdownWhileStarting(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestStartAfterShutdown(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Start("127.0.0.1:0"))
}
