package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/wire"
)

func sampleFrame() *wire.FrameProto {
	return &wire.FrameProto{
		StreamID:          "front_door",
		FrameID:           42,
		CaptureTimeMicros: "1700000000000000",
		Image:             []byte{0xff, 0xd8, 0xff, 0x00},
		RectInfos: []wire.RectInfo{
			{X: 1, Y: 2, W: 3, H: 4, Label: "person", HasID: true, ID: 7, Feature: []float64{0.1, 0.2, 0.3}},
			{X: 10, Y: 20, W: 30, H: 40},
		},
	}
}

func TestFrameProtoWireRoundTrip(t *testing.T) {
	f := sampleFrame()
	data := f.Marshal()
	require.NotEmpty(t, data)

	got, err := wire.UnmarshalFrameProto(data)
	require.NoError(t, err)
	require.Equal(t, f.StreamID, got.StreamID)
	require.Equal(t, f.FrameID, got.FrameID)
	require.Equal(t, f.CaptureTimeMicros, got.CaptureTimeMicros)
	require.Equal(t, f.Image, got.Image)
	require.Len(t, got.RectInfos, 2)
	require.Equal(t, "person", got.RectInfos[0].Label)
	require.True(t, got.RectInfos[0].HasID)
	require.Equal(t, int64(7), got.RectInfos[0].ID)
	require.InDeltaSlice(t, f.RectInfos[0].Feature, got.RectInfos[0].Feature, 1e-9)
	require.False(t, got.RectInfos[1].HasID)
}

func TestFrameProtoCBORRoundTrip(t *testing.T) {
	f := sampleFrame()
	data, err := f.ToCBOR()
	require.NoError(t, err)

	got, err := wire.FrameProtoFromCBOR(data)
	require.NoError(t, err)
	require.Equal(t, f.StreamID, got.StreamID)
	require.Equal(t, f.FrameID, got.FrameID)
	require.Len(t, got.RectInfos, 2)
}

func TestDetectionProtoWireRoundTrip(t *testing.T) {
	d := &wire.DetectionProto{
		StreamID:          "front_door",
		FrameID:           9,
		CaptureTimeMicros: "1700000000000001",
		Thumbnails: []wire.Thumbnail{
			{Image: []byte{1, 2, 3}, Label: "cat", HasID: true, ID: 5, Feature: []float64{1, 2}},
		},
	}
	data := d.Marshal()
	got, err := wire.UnmarshalDetectionProto(data)
	require.NoError(t, err)
	require.Equal(t, d.StreamID, got.StreamID)
	require.Len(t, got.Thumbnails, 1)
	require.Equal(t, []byte{1, 2, 3}, got.Thumbnails[0].Image)
	require.Equal(t, "cat", got.Thumbnails[0].Label)
}

func TestEmptyFrameProtoRoundTrip(t *testing.T) {
	f := &wire.FrameProto{}
	data := f.Marshal()
	got, err := wire.UnmarshalFrameProto(data)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.FrameID)
	require.Empty(t, got.RectInfos)
}
