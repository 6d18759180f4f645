package encoder_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/encoder"
	"github.com/saf-project/saf/stream"
)

func TestEncoderAppendsPayloadAndStampsMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.h264")

	body := &encoder.Body{OutputPath: path}
	b := operator.NewBase("enc", "GstVideoEncoder", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	frame.Set(f, "original_bytes", []byte("frame-one"))
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	marker, err := frame.Get[bool](got, "encoded")
	require.NoError(t, err)
	require.True(t, marker)

	require.NoError(t, src.Push(frame.NewStopFrame(), true))
	stop, ok := reader.Pop(2000)
	require.True(t, ok)
	require.True(t, stop.IsStopFrame())

	b.Stop()

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "frame-one", string(written))
}

func TestEncoderWithoutOutputPathStillPassesFramesThrough(t *testing.T) {
	body := &encoder.Body{}
	b := operator.NewBase("enc", "GstVideoEncoder", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(7)
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.Equal(t, uint64(7), got.FrameID())
}
