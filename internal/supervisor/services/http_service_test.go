// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer blocks in ListenAndServe until Shutdown or a scripted failure.
type fakeServer struct {
	serveErr   error
	shutdownCh chan struct{}
	shutdowns  chan struct{}
}

func newFakeServer(serveErr error) *fakeServer {
	return &fakeServer{
		serveErr:   serveErr,
		shutdownCh: make(chan struct{}),
		shutdowns:  make(chan struct{}, 1),
	}
}

func (f *fakeServer) ListenAndServe() error {
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(_ context.Context) error {
	close(f.shutdownCh)
	f.shutdowns <- struct{}{}
	return nil
}

func TestHTTPService_ListenerFailureSurfaces(t *testing.T) {
	t.Parallel()

	boom := errors.New("listen tcp: address in use")
	svc := NewHTTPService(newFakeServer(boom), ":0", time.Second, zerolog.Nop())

	err := svc.Serve(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestHTTPService_GracefulShutdownOnCancel(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(nil)
	svc := NewHTTPService(srv, ":0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancel")
	}

	select {
	case <-srv.shutdowns:
	default:
		t.Fatal("server was not shut down")
	}
}

func TestHTTPService_String(t *testing.T) {
	t.Parallel()

	svc := NewHTTPService(newFakeServer(nil), ":0", 0, zerolog.Nop())
	assert.Equal(t, "http-server", svc.String())
}
