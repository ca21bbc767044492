package idle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeout = 2 * time.Second

func startWait(t *testing.T, ctrl *Controller, ctx context.Context, once bool, active func() bool) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Wait(ctx, once, active)
	}()
	require.Eventually(t, func() bool {
		return ctrl.State() == Waiting
	}, timeout, time.Millisecond)
	return done
}

func waitResult(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatal("waiter was not released")
	}
	return nil
}

func TestReleaseWakesWaiterOnce(t *testing.T) {
	ctrl := NewWithLogger(lib.NewTestLogger(t, "idle"))
	done := startWait(t, ctrl, context.Background(), true, nil)

	delivered := false
	ctrl.Release(func() { delivered = true })

	require.NoError(t, waitResult(t, done))
	assert.True(t, delivered)
	assert.Equal(t, Running, ctrl.State())
}

func TestAbortReleasesWaiter(t *testing.T) {
	ctrl := New()
	done := startWait(t, ctrl, context.Background(), false, nil)

	ctrl.AbortIfWaiting()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Running, ctrl.State())
}

func TestReleaseWhileAbortingWakesFirst(t *testing.T) {
	ctrl := New()
	ctrl.state = Aborting
	ctrl.permits = 0

	var permitsWhenDelivered int
	ctrl.Release(func() {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		permitsWhenDelivered = ctrl.permits
	})
	assert.Equal(t, 1, permitsWhenDelivered)

	ctrl.state = Waiting
	ctrl.permits = 0
	ctrl.Release(func() {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		permitsWhenDelivered = ctrl.permits
	})
	assert.Equal(t, 0, permitsWhenDelivered)
}

func TestWaiterLoopsOnEachRelease(t *testing.T) {
	ctrl := New()
	var active atomic.Bool
	active.Store(true)
	done := startWait(t, ctrl, context.Background(), false, active.Load)

	var delivered atomic.Int32
	for i := 0; i < 3; i++ {
		ctrl.Release(func() { delivered.Add(1) })
	}
	// still waiting after all the wake ups
	require.Eventually(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return ctrl.permits == 0
	}, timeout, time.Millisecond)
	assert.Equal(t, Waiting, ctrl.State())
	assert.Equal(t, int32(3), delivered.Load())

	active.Store(false)
	ctrl.Release(nil)
	require.NoError(t, waitResult(t, done))
}

func TestSecondWaiterReturnsImmediately(t *testing.T) {
	ctrl := New()
	done := startWait(t, ctrl, context.Background(), true, nil)

	// the second one doesn't block
	err := ctrl.Wait(context.Background(), true, nil)
	assert.NoError(t, err)
	assert.Equal(t, Waiting, ctrl.State())

	ctrl.AbortIfWaiting()
	require.NoError(t, waitResult(t, done))
}

func TestCancelContext(t *testing.T) {
	ctrl := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := startWait(t, ctrl, ctx, false, nil)

	cancel()
	err := waitResult(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Running, ctrl.State())
}

func TestReleaseWithoutWaiterIsNotCounted(t *testing.T) {
	ctrl := New()
	delivered := 0
	ctrl.Release(func() { delivered++ })
	ctrl.Release(func() { delivered++ })
	assert.Equal(t, 2, delivered)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := ctrl.Wait(ctx, true, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInactiveReturnsWithoutBlocking(t *testing.T) {
	ctrl := New()
	err := ctrl.Wait(context.Background(), false, func() bool { return false })
	assert.NoError(t, err)
	assert.Equal(t, Running, ctrl.State())
}

func TestAbortWithoutWaiter(t *testing.T) {
	ctrl := New()
	ctrl.AbortIfWaiting()
	assert.Equal(t, Running, ctrl.State())
	assert.Equal(t, "running", ctrl.State().String())
}
