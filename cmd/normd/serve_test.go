package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// blockingServer mimics a gRPC server whose GracefulStop waits on an
// in-flight RPC that only ends once Stop closes its connection.
type blockingServer struct {
	release chan struct{}
	stopped atomic.Bool
}

func (b *blockingServer) GracefulStop() { <-b.release }

func (b *blockingServer) Stop() {
	b.stopped.Store(true)
	close(b.release)
}

func TestStopGRPCForcesStopAfterDeadline(t *testing.T) {
	srv := &blockingServer{release: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		stopGRPC(ctx, srv)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stopGRPC did not return after the shutdown deadline")
	}
	if !srv.stopped.Load() {
		t.Fatal("expected Stop to be called")
	}
}

type drainedServer struct {
	stopped bool
}

func (d *drainedServer) GracefulStop() {}

func (d *drainedServer) Stop() { d.stopped = true }

func TestStopGRPCGracefulWithinDeadline(t *testing.T) {
	srv := &drainedServer{}
	stopGRPC(context.Background(), srv)
	if srv.stopped {
		t.Fatal("expected no forced Stop when graceful stop completes")
	}
}
