package jobqueue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stopWithTimeout fails the test instead of letting a broken Stop hang the
// whole run on wg.Wait.
func stopWithTimeout(t *testing.T, m *Manager, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("manager Stop did not return in time")
	}
}

func TestManagerStartStopRestart(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)
	resetJobQueueRedis(t)

	m := &Manager{
		queue:  NewQueue(1),
		stopCh: make(chan struct{}),
	}

	var runs int64
	m.RegisterTask(BackgroundTask{
		Name:     "heartbeat",
		Interval: 20 * time.Millisecond,
		Run: func() error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	m.Start()
	require.True(t, m.IsRunning())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) > 0
	}, 3*time.Second, 10*time.Millisecond, "task never ran after first start")

	stopWithTimeout(t, m, 10*time.Second)
	require.False(t, m.IsRunning())

	// A second cycle must come up cleanly and its workers must still see
	// the stop signal; the task keeps ticking and Stop returns again.
	firstRuns := atomic.LoadInt64(&runs)
	m.Start()
	require.True(t, m.IsRunning())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) > firstRuns
	}, 3*time.Second, 10*time.Millisecond, "task never ran after restart")

	stopWithTimeout(t, m, 10*time.Second)
	require.False(t, m.IsRunning())
}

func TestManagerStopWithoutStartIsNoOp(t *testing.T) {
	m := &Manager{
		queue:  NewQueue(1),
		stopCh: make(chan struct{}),
	}

	stopWithTimeout(t, m, 5*time.Second)
	assert.False(t, m.IsRunning())
}
