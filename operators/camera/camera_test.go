package camera_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/camera"
)

func TestCameraEmitsFramesThenStopsWithoutRestart(t *testing.T) {
	body := &camera.Body{
		Source: camera.NewLoopSource([][]byte{{1}, {2}, {3}}, false),
		Width:  640,
		Height: 480,
	}
	b := operator.NewBase("cam", "Camera", nil, []string{"output"}, body, nil)
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	var ids []uint64
	for i := 0; i < 3; i++ {
		f, ok := reader.Pop(2000)
		require.True(t, ok)
		require.False(t, f.IsStopFrame())
		ids = append(ids, f.FrameID())
	}
	require.Equal(t, []uint64{1, 2, 3}, ids)

	stop, ok := reader.Pop(2000)
	require.True(t, ok)
	require.True(t, stop.IsStopFrame())
}

func TestLoopSourceRestartsWhenConfigured(t *testing.T) {
	src := camera.NewLoopSource([][]byte{{1}, {2}}, true)
	seen := make([]byte, 0, 6)
	for i := 0; i < 6; i++ {
		p, ok := src.Next()
		require.True(t, ok)
		seen = append(seen, p[0])
	}
	require.Equal(t, []byte{1, 2, 1, 2, 1, 2}, seen)
}
