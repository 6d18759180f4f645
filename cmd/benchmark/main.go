// Command benchmark drives a synthetic load through a small
// programmatically-built pipeline (Camera -> Throttler -> Buffer -> a
// counting sink) for a fixed duration and reports the sink's frame count,
// the camera, throttler and buffer latency stats, and the throttler's drop
// count, exercising the same Pipeline machinery
// cmd/pipeline uses without depending on a JSON spec file or real camera
// input.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/buffer"
	"github.com/saf-project/saf/operators/camera"
	"github.com/saf-project/saf/operators/throttler"
	"github.com/saf-project/saf/pipeline"
)

// sinkBody drains its input and counts frames, the synthetic terminal
// stage a real deployment would replace with a Writer or Sender.
type sinkBody struct {
	count uint64
}

func (s *sinkBody) Init() error { return nil }

func (s *sinkBody) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return nil
	}
	s.count++
	return nil
}

func (s *sinkBody) OnStop() {}

func main() {
	os.Exit(run())
}

func run() int {
	duration := flag.Duration("duration", 3*time.Second, "how long to run the benchmark")
	fps := flag.Float64("fps", 500, "synthetic source rate, frames per second")
	throttleFPS := flag.Float64("throttle-fps", 100, "Throttler operator cap, frames per second")
	bufferDepth := flag.Int("buffer", 4, "Buffer operator depth")
	flag.Parse()

	logger := log.Default()

	payloads := make([][]byte, 16)
	for i := range payloads {
		payloads[i] = []byte{byte(i)}
	}

	camBody := &camera.Body{Source: camera.NewLoopSource(payloads, true), FPS: *fps, Width: 640, Height: 480}
	camOp := operator.NewBase("cam", "Camera", nil, []string{"output"}, camBody, logger)

	throttleBody := &throttler.Body{FPS: *throttleFPS}
	throttleOp := operator.NewBase("throttle", "Throttler", []string{"input"}, []string{"output"}, throttleBody, logger)

	bufBody := &buffer.Body{N: *bufferDepth}
	bufOp := operator.NewBase("buf", "Buffer", []string{"input"}, []string{"output"}, bufBody, logger)

	sink := &sinkBody{}
	sinkOp := operator.NewBase("sink", "Sink", []string{"input"}, nil, sink, logger)

	p := pipeline.New(32, logger)
	p.Add(camOp)
	p.Add(throttleOp)
	p.Add(bufOp)
	p.Add(sinkOp)
	if err := p.Wire("throttle", "input", "cam", "output"); err != nil {
		logger.Error("wiring throttle", "err", err)
		return 1
	}
	if err := p.Wire("buf", "input", "throttle", "output"); err != nil {
		logger.Error("wiring buffer", "err", err)
		return 1
	}
	if err := p.Wire("sink", "input", "buf", "output"); err != nil {
		logger.Error("wiring sink", "err", err)
		return 1
	}

	if !p.Start() {
		logger.Error("pipeline failed to start")
		return 1
	}

	time.Sleep(*duration)

	if !p.Stop() {
		logger.Error("pipeline did not stop cleanly")
		return 1
	}

	fmt.Printf("frames received by sink: %d\n", sink.count)
	fmt.Printf("camera latency:   %+v\n", camOp.Latency())
	fmt.Printf("throttler latency: %+v\n", throttleOp.Latency())
	fmt.Printf("buffer latency:    %+v\n", bufOp.Latency())
	fmt.Printf("dropped by throttler: %d\n", throttleBody.Dropped())
	return 0
}
