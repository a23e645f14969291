package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireFetchSecondCallerRejected(t *testing.T) {
	g := NewGuard()

	release, err := g.TryAcquireFetch(7)
	require.NoError(t, err)

	_, err = g.TryAcquireFetch(7)
	assert.ErrorIs(t, err, ErrFetchInProgress)

	release()

	release2, err := g.TryAcquireFetch(7)
	require.NoError(t, err)
	release2()
}

func TestFetchLocksAreIndependentPerUser(t *testing.T) {
	g := NewGuard()

	release, err := g.TryAcquireFetch(1)
	require.NoError(t, err)
	defer release()

	release2, err := g.TryAcquireFetch(2)
	require.NoError(t, err)
	release2()
}

func TestConcurrentFetchersOnlyOneWins(t *testing.T) {
	g := NewGuard()

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	done := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			release, err := g.TryAcquireFetch(7)
			if err != nil {
				losses.Add(1)
				return
			}
			wins.Add(1)
			<-done
			release()
		}()
	}

	close(start)
	for wins.Load()+losses.Load() < 16 {
	}
	close(done)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), losses.Load())
}

func TestLockFetchBlocksUntilReleased(t *testing.T) {
	g := NewGuard()

	release, err := g.TryAcquireFetch(7)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r := g.LockFetch(7)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("LockFetch acquired while the lock was held")
	default:
	}

	release()
	<-acquired
}

func TestWizardBlocksFetch(t *testing.T) {
	g := NewGuard()

	require.NoError(t, g.BeginWizard(7))

	_, err := g.TryAcquireFetch(7)
	assert.ErrorIs(t, err, ErrWizardActive)

	assert.ErrorIs(t, g.BeginWizard(7), ErrWizardActive)

	g.EndWizard(7)

	release, err := g.TryAcquireFetch(7)
	require.NoError(t, err)
	release()
}

func TestFetchBlocksWizard(t *testing.T) {
	g := NewGuard()

	release, err := g.TryAcquireFetch(7)
	require.NoError(t, err)

	assert.ErrorIs(t, g.BeginWizard(7), ErrFetchInProgress)

	release()
	require.NoError(t, g.BeginWizard(7))
	g.EndWizard(7)
}

func TestEndWizardIdempotent(t *testing.T) {
	g := NewGuard()
	g.EndWizard(7)
	assert.False(t, g.WizardActive(7))
}

func TestCurrentSetGetPop(t *testing.T) {
	c := NewCurrent()

	_, ok := c.Get(7)
	assert.False(t, ok)

	c.Set(7, "Two Sum")
	title, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Two Sum", title)

	c.Set(7, "LRU Cache")
	title, _ = c.Get(7)
	assert.Equal(t, "LRU Cache", title)

	title, ok = c.Pop(7)
	require.True(t, ok)
	assert.Equal(t, "LRU Cache", title)

	_, ok = c.Pop(7)
	assert.False(t, ok)
}
