package strider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/strider"
	"github.com/saf-project/saf/stream"
)

func TestStriderEmitsEveryNth(t *testing.T) {
	body := &strider.Body{N: 3}
	b := operator.NewBase("st", "Strider", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(32))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(32)

	for i := uint64(1); i <= 9; i++ {
		f := frame.New()
		f.SetFrameID(i)
		require.NoError(t, src.Push(f, true))
	}

	var got []uint64
	for i := 0; i < 3; i++ {
		f, ok := reader.Pop(2000)
		require.True(t, ok)
		got = append(got, f.FrameID())
	}
	require.Equal(t, []uint64{3, 6, 9}, got)
	require.Equal(t, uint64(6), body.Dropped())
}
