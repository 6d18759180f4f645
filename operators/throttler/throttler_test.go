package throttler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/throttler"
	"github.com/saf-project/saf/stream"
)

func TestThrottlerDropsFramesAboveFPS(t *testing.T) {
	body := &throttler.Body{FPS: 1000} // one frame every 1ms
	b := operator.NewBase("th", "Throttler", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(32))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(32)

	for i := uint64(0); i < 20; i++ {
		f := frame.New()
		f.SetFrameID(i)
		require.NoError(t, src.Push(f, true))
	}

	received := 0
	for {
		_, ok := reader.Pop(50)
		if !ok {
			break
		}
		received++
	}
	require.Less(t, received, 20)
	require.Greater(t, body.Dropped(), uint64(0))
}

func TestThrottlerAlwaysForwardsStopFrame(t *testing.T) {
	body := &throttler.Body{FPS: 0}
	b := operator.NewBase("th", "Throttler", []string{"input"}, []string{"output"}, body, nil)
	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	require.NoError(t, src.Push(frame.NewStopFrame(), true))
	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.True(t, got.IsStopFrame())
}
