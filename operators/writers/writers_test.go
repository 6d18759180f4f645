package writers_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/writers"
	"github.com/saf-project/saf/stream"
)

func TestJpegWriterFlatLayout(t *testing.T) {
	dir := t.TempDir()
	body := writers.NewJpegBody(dir, writers.LayoutFlat, 0)
	b := operator.NewBase("jw", "JpegWriter", []string{"input"}, nil, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	f := frame.New()
	f.SetFrameID(7)
	frame.Set(f, "original_bytes", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, src.Push(f, true))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "7.jpg"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFrameWriterByCaptureTimeLayout(t *testing.T) {
	dir := t.TempDir()
	body := writers.NewFrameBody(dir, writers.LayoutByCapture, 0)
	b := operator.NewBase("fw", "FrameWriter", []string{"input"}, nil, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	captured := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := frame.New()
	f.SetFrameID(1)
	f.SetCaptureTime(captured)
	require.NoError(t, src.Push(f, true))

	expected := filepath.Join(dir, "2026", "01", "02", "03", "04", "05", "1.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(expected)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWriterRejectsMissingConnectionString(t *testing.T) {
	_, err := operator.New("Writer", "dbw", map[string]interface{}{})
	require.Error(t, err)
}

func TestWriterInitRejectsMalformedConnectionString(t *testing.T) {
	op, err := operator.New("Writer", "dbw", map[string]interface{}{
		"connection_string": "not a valid pgx connection string \x00",
	})
	require.NoError(t, err)
	require.NoError(t, op.SetSource("input", stream.New("src", nil)))
	require.False(t, op.Start(8))
}
