package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/buffer"
	"github.com/saf-project/saf/stream"
)

func TestBufferDelaysByExactlyN(t *testing.T) {
	body := &buffer.Body{N: 3}
	b := operator.NewBase("buf", "Buffer", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(32))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(32)

	for i := uint64(1); i <= 3; i++ {
		f := frame.New()
		f.SetFrameID(i)
		require.NoError(t, src.Push(f, true))
	}
	_, ok := reader.Pop(50)
	require.False(t, ok, "no frame should be released before the buffer fills")

	f4 := frame.New()
	f4.SetFrameID(4)
	require.NoError(t, src.Push(f4, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.FrameID(), "buffer releases the oldest frame once depth exceeds N")
}

func TestBufferFlushesOnStopFrame(t *testing.T) {
	body := &buffer.Body{N: 5}
	b := operator.NewBase("buf", "Buffer", []string{"input"}, []string{"output"}, body, nil)
	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(32))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(32)

	for i := uint64(1); i <= 2; i++ {
		f := frame.New()
		f.SetFrameID(i)
		require.NoError(t, src.Push(f, true))
	}
	require.NoError(t, src.Push(frame.NewStopFrame(), true))

	got1, ok := reader.Pop(2000)
	require.True(t, ok)
	require.Equal(t, uint64(1), got1.FrameID())
	got2, ok := reader.Pop(2000)
	require.True(t, ok)
	require.Equal(t, uint64(2), got2.FrameID())
	stop, ok := reader.Pop(2000)
	require.True(t, ok)
	require.True(t, stop.IsStopFrame())
}
