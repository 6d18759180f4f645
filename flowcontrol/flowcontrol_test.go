package flowcontrol_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/flowcontrol"
	"github.com/saf-project/saf/frame"
)

func TestAcquireStampsAndReleaseReturnsBudget(t *testing.T) {
	e := flowcontrol.NewEntrance(2, nil)
	f1 := frame.New()
	f1, err := e.Acquire(f1)
	require.NoError(t, err)
	require.True(t, f1.HasToken())
	require.Equal(t, 1, e.Outstanding())

	exit := flowcontrol.NewExit()
	exit.Release(f1)
	require.False(t, f1.HasToken())
	require.Equal(t, 0, e.Outstanding())
}

func TestAcquireBlocksUntilBudgetAvailable(t *testing.T) {
	e := flowcontrol.NewEntrance(1, nil)
	f1, err := e.Acquire(frame.New())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		f2, err := e.Acquire(frame.New())
		require.NoError(t, err)
		require.True(t, f2.HasToken())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must block while budget is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	flowcontrol.NewExit().Release(f1)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not unblock after release")
	}
}

func TestAcquireIsNotReentrant(t *testing.T) {
	e := flowcontrol.NewEntrance(1, nil)
	f, err := e.Acquire(frame.New())
	require.NoError(t, err)
	id := f.TokenID()

	f2, err := e.Acquire(f)
	require.NoError(t, err)
	require.Equal(t, id, f2.TokenID(), "acquiring an already-tokened frame must be a no-op")
	require.Equal(t, 1, e.Outstanding())
}

func TestSweepReportsStaleWithoutReleasing(t *testing.T) {
	e := flowcontrol.NewEntrance(4, nil)
	f, err := e.Acquire(frame.New())
	require.NoError(t, err)

	stale := e.Sweep(0)
	require.Equal(t, 1, stale)
	require.Equal(t, 1, e.Outstanding(), "sweep must never release a token itself")

	flowcontrol.NewExit().Release(f)
	require.Equal(t, 0, e.Outstanding())
}

func TestCloseUnblocksPendingAcquire(t *testing.T) {
	e := flowcontrol.NewEntrance(1, nil)
	_, err := e.Acquire(frame.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var acquireErr error
	go func() {
		defer wg.Done()
		_, acquireErr = e.Acquire(frame.New())
	}()

	time.Sleep(20 * time.Millisecond)
	e.Close()
	wg.Wait()
	require.Error(t, acquireErr)
}
