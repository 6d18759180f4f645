package flowcontrol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	opflow "github.com/saf-project/saf/operators/flowcontrol"
	"github.com/saf-project/saf/stream"
)

func TestEntranceStampsTokenExitReleasesIt(t *testing.T) {
	entranceBody := &opflow.EntranceBody{Budget: 2}
	entrance := operator.NewBase("fce", "FlowControlEntrance", []string{"input"}, []string{"output"}, entranceBody, nil)

	exitBody := &opflow.ExitBody{}
	exit := operator.NewBase("fcx", "FlowControlExit", []string{"input"}, []string{"output"}, exitBody, nil)

	src := stream.New("src", nil)
	require.NoError(t, entrance.SetSource("input", src))
	require.True(t, entrance.Start(8))
	defer entrance.Stop()

	entranceOut, _ := entrance.Sink("output")
	require.NoError(t, exit.SetSource("input", entranceOut))
	require.True(t, exit.Start(8))
	defer exit.Stop()

	exitOut, _ := exit.Sink("output")
	reader := exitOut.Subscribe(8)

	f := frame.New()
	f.SetFrameID(1)
	require.NoError(t, src.Push(f, true))

	got, ok := reader.Pop(2000)
	require.True(t, ok)
	require.False(t, got.HasToken(), "Exit releases the token before forwarding")
}

func TestEntranceStopUnblocksAcquireWhenBudgetExhausted(t *testing.T) {
	entranceBody := &opflow.EntranceBody{Budget: 1}
	entrance := operator.NewBase("fce", "FlowControlEntrance", []string{"input"}, []string{"output"}, entranceBody, nil)

	src := stream.New("src", nil)
	require.NoError(t, entrance.SetSource("input", src))
	require.True(t, entrance.Start(8))

	out, _ := entrance.Sink("output")
	reader := out.Subscribe(8)

	// Acquire the only token and never release it, leaving a second
	// Process call parked inside Acquire when Stop is requested.
	first := frame.New()
	first.SetFrameID(1)
	require.NoError(t, src.Push(first, true))
	_, ok := reader.Pop(2000)
	require.True(t, ok)

	second := frame.New()
	second.SetFrameID(2)
	require.NoError(t, src.Push(second, true))
	time.Sleep(100 * time.Millisecond) // let the worker loop pop it and park in Acquire

	done := make(chan bool, 1)
	go func() { done <- entrance.Stop() }()

	select {
	case stopped := <-done:
		require.True(t, stopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a Process call was parked in Acquire")
	}
}
