package transform_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/transform"
	"github.com/saf-project/saf/stream"
)

func TestResizeRewritesDimensions(t *testing.T) {
	body := &transform.Body{Op: transform.OpResize, TargetWidth: 320, TargetHeight: 240}
	b := operator.NewBase("tr", "ImageTransformer", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	frame.Set(f, "width", int32(1920))
	frame.Set(f, "height", int32(1080))
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	w, err := frame.Get[int32](got, "width")
	require.NoError(t, err)
	h, err := frame.Get[int32](got, "height")
	require.NoError(t, err)
	require.Equal(t, int32(320), w)
	require.Equal(t, int32(240), h)
}

func TestRotate90SwapsDimensions(t *testing.T) {
	body := &transform.Body{Op: transform.OpRotate, RotateDegrees: 90}
	b := operator.NewBase("tr", "ImageTransformer", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	frame.Set(f, "width", int32(640))
	frame.Set(f, "height", int32(480))
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	w, _ := frame.Get[int32](got, "width")
	h, _ := frame.Get[int32](got, "height")
	require.Equal(t, int32(480), w)
	require.Equal(t, int32(640), h)
}
