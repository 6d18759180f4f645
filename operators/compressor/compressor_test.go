package compressor_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/compressor"
	"github.com/saf-project/saf/stream"
)

func TestCompressorGzipsOriginalBytes(t *testing.T) {
	body := &compressor.Body{Algo: compressor.Gzip}
	b := operator.NewBase("gz", "Compressor", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	frame.Set(f, "original_bytes", []byte("hello world hello world hello world"))
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)

	original, err := frame.Get[[]byte](got, "original_bytes")
	require.NoError(t, err)
	require.Equal(t, "hello world hello world hello world", string(original))

	compressed, err := frame.Get[[]byte](got, "compressed_bytes")
	require.NoError(t, err)

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello world hello world hello world", string(decoded))

	algo, err := frame.Get[string](got, "compression_type")
	require.NoError(t, err)
	require.Equal(t, "gzip", algo)
}
