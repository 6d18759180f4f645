package operator_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/stream"
)

// passThrough copies every frame from "input" to "output", counting.
type passThrough struct {
	processed atomic.Int64
	inited    atomic.Bool
	stopped   atomic.Bool
}

func (p *passThrough) Init() error { p.inited.Store(true); return nil }

func (p *passThrough) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	p.processed.Add(1)
	return op.PushFrame("output", f)
}

func (p *passThrough) OnStop() { p.stopped.Store(true) }

func TestStartRequiresBoundSources(t *testing.T) {
	body := &passThrough{}
	b := operator.NewBase("pt", "PassThrough", []string{"input"}, []string{"output"}, body, nil)
	require.False(t, b.Start(8), "start must fail with an unbound source")
}

func TestProcessPipesFrames(t *testing.T) {
	body := &passThrough{}
	b := operator.NewBase("pt", "PassThrough", []string{"input"}, []string{"output"}, body, nil)

	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	require.True(t, body.inited.Load())

	out, err := b.Sink("output")
	require.NoError(t, err)
	reader := out.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	f.SetCaptureTime(time.Now())
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.FrameID())

	require.True(t, b.Stop())
	require.True(t, body.stopped.Load())
	require.Equal(t, int64(1), body.processed.Load())
}

func TestUnknownPortErrors(t *testing.T) {
	body := &passThrough{}
	b := operator.NewBase("pt", "PassThrough", []string{"input"}, []string{"output"}, body, nil)
	require.Error(t, b.SetSource("nope", stream.New("x", nil)))
	_, err := b.Sink("nope")
	require.Error(t, err)
}

func TestStopIsIdempotentAndUnstartedIsNoOp(t *testing.T) {
	body := &passThrough{}
	b := operator.NewBase("pt", "PassThrough", nil, []string{"output"}, body, nil)
	require.True(t, b.Stop(), "stopping an unstarted operator is a no-op")

	require.True(t, b.Start(8))
	require.True(t, b.Stop())
	require.True(t, b.Stop(), "second stop must be a no-op, not a panic")
}

// sourcelessStopper has no declared sources (like Camera at EOF): it
// pushes exactly one stop frame on its first Process call and must not
// be ticked again afterward.
type sourcelessStopper struct {
	calls atomic.Int64
}

func (s *sourcelessStopper) Init() error { return nil }

func (s *sourcelessStopper) Process(op *operator.Base) error {
	s.calls.Add(1)
	return op.PushFrame("output", frame.NewStopFrame())
}

func (s *sourcelessStopper) OnStop() {}

func TestSourcelessBodyStopsLoopAfterPushingStopFrame(t *testing.T) {
	body := &sourcelessStopper{}
	b := operator.NewBase("ss", "Sourceless", nil, []string{"output"}, body, nil)
	require.True(t, b.Start(8))

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.True(t, got.IsStopFrame())

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int64(1), body.calls.Load(), "run loop must stop ticking once a stop frame is pushed, not busy-spin")

	require.True(t, b.Stop())
}

func TestLatencyStatsAccumulate(t *testing.T) {
	body := &passThrough{}
	b := operator.NewBase("pt", "PassThrough", []string{"input"}, []string{"output"}, body, nil)
	src := stream.New("src", nil)
	require.NoError(t, b.SetSource("input", src))
	require.True(t, b.Start(8))
	defer b.Stop()

	out, _ := b.Sink("output")
	reader := out.Subscribe(8)

	for i := uint64(0); i < 5; i++ {
		f := frame.New()
		f.SetFrameID(i)
		f.SetCaptureTime(time.Now())
		require.NoError(t, src.Push(f, true))
		_, ok := reader.Pop(2000)
		require.True(t, ok)
	}

	stats := b.Latency()
	require.Equal(t, uint64(5), stats.ProcessedCount)
}
