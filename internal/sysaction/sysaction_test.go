package sysaction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/tekogu/battwatch/internal/errors"
)

func TestShutdownLatchFiresOnce(t *testing.T) {
	latch := &ShutdownLatch{}

	assert.False(t, latch.Fired())
	assert.True(t, latch.TryAcquire(), "First caller wins")
	assert.False(t, latch.TryAcquire(), "Second caller loses")
	assert.True(t, latch.Fired())
}

func TestShutdownLatchConcurrent(t *testing.T) {
	latch := &ShutdownLatch{}

	var wg sync.WaitGroup
	winners := make(chan struct{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if latch.TryAcquire() {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	assert.Len(t, winners, 1, "Exactly one caller may fire the shutdown")
}

func TestRunnerExecutes(t *testing.T) {
	r := NewRunner("true", "true")

	require.NoError(t, r.Shutdown())
	require.NoError(t, r.Restart())
}

func TestRunnerWrapsFailure(t *testing.T) {
	r := NewRunner("false", "/nonexistent/battwatch-restart")

	err := r.Shutdown()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrShutdownAction))

	err = r.Restart()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRestartAction))
}

func TestRunnerEmptyCommand(t *testing.T) {
	r := NewRunner("", "")

	assert.Error(t, r.Shutdown())
	assert.Error(t, r.Restart())
}

func TestFakeCountsCalls(t *testing.T) {
	fake := &Fake{}

	require.NoError(t, fake.Shutdown())
	require.NoError(t, fake.Shutdown())
	require.NoError(t, fake.Restart())

	assert.Equal(t, 2, fake.ShutdownCalls)
	assert.Equal(t, 1, fake.RestartCalls)
}
