package frame_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
)

func TestSetGetRoundTrip(t *testing.T) {
	f := frame.New()
	frame.Set(f, "width", int32(224))
	frame.Set(f, "score", float32(0.91))
	frame.Set(f, "label", "cat")
	frame.Set(f, "boxes", []frame.Rect{{X: 1, Y: 2, W: 3, H: 4}})

	w, err := frame.Get[int32](f, "width")
	require.NoError(t, err)
	require.Equal(t, int32(224), w)

	_, err = frame.Get[int32](f, "missing")
	require.Error(t, err)

	_, err = frame.Get[int64](f, "width")
	require.Error(t, err, "type mismatch expected")
}

func TestHasDelete(t *testing.T) {
	f := frame.New()
	require.False(t, f.Has("x"))
	frame.Set(f, "x", int64(1))
	require.True(t, f.Has("x"))
	f.Delete("x")
	require.False(t, f.Has("x"))
	f.Delete("x") // no-op, must not panic
}

func TestStopFrameSugar(t *testing.T) {
	f := frame.New()
	require.False(t, f.IsStopFrame())
	f.SetStopFrame(true)
	require.True(t, f.IsStopFrame())
}

func TestCloneWithSubset(t *testing.T) {
	f := frame.New()
	frame.Set(f, "a", int64(1))
	frame.Set(f, "b", int64(2))
	frame.Set(f, "original_bytes", []byte{1, 2, 3})

	clone := f.CloneWith("a", "original_bytes")
	require.ElementsMatch(t, []string{"a", "original_bytes"}, clone.Keys())

	b, _ := frame.Get[[]byte](clone, "original_bytes")
	b[0] = 99
	orig, _ := frame.Get[[]byte](f, "original_bytes")
	require.Equal(t, byte(1), orig[0], "clone mutation must not alias original")
}

func TestCloneWithEmptyMeansAll(t *testing.T) {
	f := frame.New()
	frame.Set(f, "a", int64(1))
	frame.Set(f, "b", int64(2))
	clone := f.CloneWith()
	require.ElementsMatch(t, f.Keys(), clone.Keys())
}

func TestJSONRoundTrip(t *testing.T) {
	f := frame.New()
	frame.Set(f, "id", uint64(42))
	frame.Set(f, "score", float64(0.5))
	frame.Set(f, "ok", true)
	frame.Set(f, "label", "person")
	frame.Set(f, "captured", time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC))
	frame.Set(f, "raw", []byte{0, 1, 255})
	frame.Set(f, "boxes", []frame.Rect{{X: 1, Y: 2, W: 3, H: 4}})
	frame.Set(f, "landmarks", []frame.Landmark{{}})
	frame.Set(f, "features", [][]float32{{1, 2, 3}})
	frame.Set(f, "votes", map[int]float64{1: 0.5})

	data, err := f.ToJSON()
	require.NoError(t, err)

	parsed, err := frame.FromJSON(data)
	require.NoError(t, err)

	for _, key := range f.Keys() {
		require.True(t, parsed.Has(key), "missing key %s after round trip", key)
	}

	id, err := frame.Get[uint64](parsed, "id")
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)

	captured, err := frame.Get[time.Time](parsed, "captured")
	require.NoError(t, err)
	require.True(t, captured.Equal(time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)))

	raw, err := frame.Get[[]byte](parsed, "raw")
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 255}, raw)
}

func TestRawSizeBytes(t *testing.T) {
	f := frame.New()
	frame.Set(f, "a", []byte{1, 2, 3, 4})
	require.Equal(t, 4, f.RawSizeBytes())
	require.Equal(t, 4, f.RawSizeBytes("a"))
	require.Equal(t, 0, f.RawSizeBytes("missing"))
}
