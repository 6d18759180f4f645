package stream_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/stream"
)

func mkFrame(id uint64) *frame.Frame {
	f := frame.New()
	f.SetFrameID(id)
	return f
}

func TestSingleReaderOrderAndCount(t *testing.T) {
	s := stream.New("test", nil)
	r := s.Subscribe(100)
	for i := uint64(0); i < 10; i++ {
		require.NoError(t, s.Push(mkFrame(i), true))
	}
	for i := uint64(0); i < 10; i++ {
		f, ok := r.Pop(100)
		require.True(t, ok)
		require.Equal(t, i, f.FrameID())
	}
}

func TestNoReadersDropsSilently(t *testing.T) {
	s := stream.New("test", nil)
	require.NoError(t, s.Push(mkFrame(1), true))
}

func TestFanOutEachOnce(t *testing.T) {
	s := stream.New("test", nil)
	slow := s.Subscribe(4) // small, non-blocking
	fast := s.Subscribe(200)

	const n = 100
	for i := uint64(0); i < n; i++ {
		s.Push(mkFrame(i), false)
	}

	// fast (large buffer, best-effort non-blocking still) should get a
	// large fraction; slow should get some strict subset, each exactly
	// once and in arrival order.
	seenFast := drainInOrder(t, fast)
	seenSlow := drainInOrder(t, slow)

	require.LessOrEqual(t, len(seenSlow), n)
	require.LessOrEqual(t, len(seenFast), n)
	require.NotEmpty(t, seenFast)
}

func drainInOrder(t *testing.T, r *stream.StreamReader) []uint64 {
	t.Helper()
	var out []uint64
	for {
		f, ok := r.Pop(50)
		if !ok {
			break
		}
		if len(out) > 0 {
			require.Greater(t, f.FrameID(), out[len(out)-1], "fan-out must preserve arrival order")
		}
		out = append(out, f.FrameID())
	}
	return out
}

func TestBlockingReaderReceivesAll(t *testing.T) {
	s := stream.New("test", nil)
	blocking := s.Subscribe(4)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(0); i < n; i++ {
			require.NoError(t, s.Push(mkFrame(i), true))
		}
	}()

	var got []uint64
	for i := 0; i < n; i++ {
		f, ok := blocking.Pop(2000)
		require.True(t, ok)
		got = append(got, f.FrameID())
	}
	wg.Wait()

	require.Len(t, got, n)
	for i, id := range got {
		require.Equal(t, uint64(i), id)
	}
}

func TestStopUnblocksPushAndPop(t *testing.T) {
	s := stream.New("test", nil)
	r := s.Subscribe(1)
	require.NoError(t, s.Push(mkFrame(0), true))

	done := make(chan struct{})
	go func() {
		// second push blocks since capacity is 1 and nothing pops.
		s.Push(mkFrame(1), true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not unblock a pending blocking push")
	}

	_, ok := r.Pop(100)
	// Either the stop-frame semantics drained what was queued or the
	// reader is simply stopped; either way Pop must not hang.
	_ = ok
}

func TestUnsubscribeInvalidatesReader(t *testing.T) {
	s := stream.New("test", nil)
	r := s.Subscribe(10)
	require.Equal(t, 1, s.ReaderCount())
	s.Unsubscribe(r)
	require.Equal(t, 0, s.ReaderCount())
	_, ok := r.Pop(50)
	require.False(t, ok)
}
