package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunInBackgroundStopWaitsForReturn(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})

	stop := runInBackground(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		// work still in flight after cancel
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	assert.False(t, finished.Load())

	stop()
	assert.True(t, finished.Load())

	// a second stop returns immediately
	stop()
}

func TestRunInBackgroundFollowsParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})

	stop := runInBackground(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(returned)
	})
	defer stop()

	cancel()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the parent context was cancelled")
	}
}
