// Package operator implements the Operator contract of §4.3: named
// input/output ports, a dedicated worker goroutine, a four-phase
// lifecycle (Init → Process loop → OnStop → teardown), and the
// latency/throughput measurement harness every derived operator kind
// shares.
package operator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/internal/worker"
	"github.com/saf-project/saf/stream"
)

const (
	// sourcePopTimeout is the per-tick, per-source pop timeout of §4.3
	// step 2a.
	sourcePopTimeout = 15 * time.Millisecond
	// latencyWindow is the trailing-window size for the smoothed
	// processing-latency figure (§3, "last-25 sliding window").
	latencyWindow = 25
)

var (
	procLatencyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saf_operator_process_latency_seconds",
		Help: "Most recent Process() latency for an operator.",
	}, []string{"operator", "kind"})
	queueLatencyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saf_operator_queue_latency_seconds",
		Help: "Most recent queueing latency (capture time to processing start) for an operator.",
	}, []string{"operator", "kind"})
)

func init() {
	prometheus.MustRegister(procLatencyGauge, queueLatencyGauge)
}

// Body is implemented by every derived operator kind (Camera,
// ImageTransformer, NeuralNetEvaluator, ...). Init is called once before
// the worker loop starts; Process is invoked once per tick per §4.3;
// OnStop runs once as the worker loop exits, for any kind of cleanup.
// Process must not block and must catch its own panics/errors — the
// substrate guarantees no supervision beyond logging (§4.3 "Failure
// semantics").
type Body interface {
	Init() error
	Process(op *Base) error
	OnStop()
}

// LatencyStats summarizes an operator's recent performance.
type LatencyStats struct {
	AvgProcessing       time.Duration
	WindowAvgProcessing time.Duration
	AvgQueueing         time.Duration
	ProcessedCount      uint64
}

// Base implements the shared worker-loop machinery every Operator kind
// embeds; Body supplies the kind-specific Process/Init/OnStop.
type Base struct {
	worker.Worker

	name string
	kind string
	body Body

	logger *log.Logger

	sourceNames []string
	sinkNames   []string

	mu            sync.Mutex
	sourceStreams map[string]*stream.Stream       // bound via SetSource, pre-start
	sourceReaders map[string]*stream.StreamReader // subscribed at Start
	sinks         map[string]*stream.Stream        // owned, created at construction
	cache         map[string]*frame.Frame

	started     atomic.Bool
	stopCalled  atomic.Bool
	sawStopFrame atomic.Bool
	blockOnPush atomic.Bool

	latMu        sync.Mutex
	procCount    uint64
	procAvg      float64 // seconds
	window       [latencyWindow]time.Duration
	windowFilled int
	windowIdx    int
	windowSum    time.Duration
	queueSum     time.Duration
	queueCount   uint64
}

// NewBase constructs an operator's shared machinery. sourceNames/sinkNames
// declare the named ports (§4.3 "Declares the set of source names and
// sink names at construction"); sinks are created (owned) immediately,
// sources are bound later via SetSource.
func NewBase(name, kind string, sourceNames, sinkNames []string, body Body, logger *log.Logger) *Base {
	if logger == nil {
		logger = log.Default()
	}
	b := &Base{
		name:          name,
		kind:          kind,
		body:          body,
		logger:        logger.With("operator", name, "kind", kind),
		sourceNames:   sourceNames,
		sinkNames:     sinkNames,
		sourceStreams: make(map[string]*stream.Stream, len(sourceNames)),
		sourceReaders: make(map[string]*stream.StreamReader, len(sourceNames)),
		sinks:         make(map[string]*stream.Stream, len(sinkNames)),
		cache:         make(map[string]*frame.Frame, len(sourceNames)),
	}
	for _, s := range sinkNames {
		b.sinks[s] = stream.New(name+":"+s, logger)
	}
	return b
}

// Name returns the operator's instance name.
func (b *Base) Name() string { return b.name }

// Kind returns the operator's enumerated static class.
func (b *Base) Kind() string { return b.kind }

// IsStarted reports whether Start has completed successfully.
func (b *Base) IsStarted() bool { return b.started.Load() }

// SetBlockOnPush sets the output-side backpressure policy (§4.3): true
// makes PushFrame on any sink block until readers have space, false
// (the default) drops when full.
func (b *Base) SetBlockOnPush(v bool) { b.blockOnPush.Store(v) }

// SetSource binds name to stream s. name must be one of the source names
// declared at construction.
func (b *Base) SetSource(name string, s *stream.Stream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sourceStreams[name]; !ok && !contains(b.sourceNames, name) {
		return &errs.UnknownPortError{Operator: b.name, Port: name}
	}
	b.sourceStreams[name] = s
	return nil
}

// Sink returns the owned Stream for sink name, for a Pipeline to wire
// into a downstream operator's SetSource.
func (b *Base) Sink(name string) (*stream.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sinks[name]
	if !ok {
		return nil, &errs.UnknownPortError{Operator: b.name, Port: name}
	}
	return s, nil
}

// SourceNames returns the declared source port names.
func (b *Base) SourceNames() []string { return append([]string(nil), b.sourceNames...) }

// SinkNames returns the declared sink port names.
func (b *Base) SinkNames() []string { return append([]string(nil), b.sinkNames...) }

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Start verifies every declared source has been bound, subscribes to each
// with bufSize, runs Init, and spawns the worker goroutine. It returns
// false (without starting the worker) if a source is unbound or Init
// fails, and false if already started.
func (b *Base) Start(bufSize int) bool {
	if !b.started.CompareAndSwap(false, true) {
		b.logger.Error("start called twice", "err", &errs.AlreadyStartedError{Operator: b.name})
		return false
	}

	b.mu.Lock()
	for _, name := range b.sourceNames {
		s, ok := b.sourceStreams[name]
		if !ok || s == nil {
			b.mu.Unlock()
			b.logger.Error("unbound source at start", "port", name)
			b.started.Store(false)
			return false
		}
		b.sourceReaders[name] = s.Subscribe(bufSize)
	}
	b.mu.Unlock()

	if err := b.body.Init(); err != nil {
		b.logger.Error("init failed", "err", err)
		b.started.Store(false)
		return false
	}

	b.Worker.Go(b.run)
	return true
}

// Stop stops each owned sink (unblocking downstream pops) and each bound
// source reader (unblocking our own pops), joins the worker, and tears
// down source bindings. It is idempotent and a warning no-op if the
// operator was never started.
func (b *Base) Stop() bool {
	if !b.started.Load() {
		b.logger.Warn("stop on unstarted operator")
		return true
	}
	if !b.stopCalled.CompareAndSwap(false, true) {
		return true
	}

	b.mu.Lock()
	sinks := make([]*stream.Stream, 0, len(b.sinks))
	for _, s := range b.sinks {
		sinks = append(sinks, s)
	}
	sources := make(map[*stream.Stream]*stream.StreamReader, len(b.sourceReaders))
	for name, r := range b.sourceReaders {
		sources[b.sourceStreams[name]] = r
	}
	b.mu.Unlock()

	for _, s := range sinks {
		s.Stop()
	}
	for s, r := range sources {
		s.Unsubscribe(r)
	}

	b.Worker.Halt()

	b.mu.Lock()
	b.sourceReaders = make(map[string]*stream.StreamReader)
	b.mu.Unlock()

	return true
}

// PushFrame pushes f to sinkName, honoring the block-on-push policy.
// Pushing a stop frame marks that this operator has observed a terminal
// frame.
func (b *Base) PushFrame(sinkName string, f *frame.Frame) error {
	s, err := b.Sink(sinkName)
	if err != nil {
		return err
	}
	if f.IsStopFrame() {
		b.sawStopFrame.Store(true)
	}
	return s.Push(f, b.blockOnPush.Load())
}

// GetFrame consumes and returns the cached frame popped for sourceName
// this tick, if any.
func (b *Base) GetFrame(sourceName string) (*frame.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.cache[sourceName]
	if ok {
		delete(b.cache, sourceName)
	}
	return f, ok
}

// Latency returns the operator's current latency/throughput figures.
func (b *Base) Latency() LatencyStats {
	b.latMu.Lock()
	defer b.latMu.Unlock()
	var windowAvg time.Duration
	if b.windowFilled > 0 {
		windowAvg = b.windowSum / time.Duration(b.windowFilled)
	}
	var avgQueue time.Duration
	if b.queueCount > 0 {
		avgQueue = b.queueSum / time.Duration(b.queueCount)
	}
	return LatencyStats{
		AvgProcessing:       time.Duration(b.procAvg * float64(time.Second)),
		WindowAvgProcessing: windowAvg,
		AvgQueueing:         avgQueue,
		ProcessedCount:      b.procCount,
	}
}

func (b *Base) recordLatency(elapsed time.Duration) {
	b.latMu.Lock()
	b.procCount++
	b.procAvg += (elapsed.Seconds() - b.procAvg) / float64(b.procCount)

	old := b.window[b.windowIdx]
	if b.windowFilled < latencyWindow {
		b.windowFilled++
	} else {
		b.windowSum -= old
	}
	b.window[b.windowIdx] = elapsed
	b.windowSum += elapsed
	b.windowIdx = (b.windowIdx + 1) % latencyWindow
	b.latMu.Unlock()

	procLatencyGauge.WithLabelValues(b.name, b.kind).Set(elapsed.Seconds())
}

func (b *Base) recordQueueLatency(f *frame.Frame) {
	ct := f.CaptureTime()
	if ct.IsZero() {
		return
	}
	q := time.Since(ct)
	b.latMu.Lock()
	b.queueSum += q
	b.queueCount++
	b.latMu.Unlock()
	queueLatencyGauge.WithLabelValues(b.name, b.kind).Set(q.Seconds())
}

func (b *Base) forwardStopToAllSinks() {
	b.mu.Lock()
	sinks := make([]*stream.Stream, 0, len(b.sinks))
	for _, s := range b.sinks {
		sinks = append(sinks, s)
	}
	b.mu.Unlock()
	for _, s := range sinks {
		stop := frame.NewStopFrame()
		if err := s.Push(stop, true); err != nil {
			b.logger.Error("failed forwarding stop frame", "sink", s.Name, "err", err)
		}
	}
	b.sawStopFrame.Store(true)
}

// run is the §4.3 worker loop.
func (b *Base) run() {
	defer b.body.OnStop()

	b.mu.Lock()
	sourceOrder := append([]string(nil), b.sourceNames...)
	b.mu.Unlock()

	for {
		select {
		case <-b.Worker.HaltCh():
			return
		default:
		}

		if len(sourceOrder) == 0 {
			b.tick()
			if b.sawStopFrame.Load() {
				return
			}
			continue
		}

		anyPopped := false
		poppedStop := false
		for _, name := range sourceOrder {
			b.mu.Lock()
			reader := b.sourceReaders[name]
			b.mu.Unlock()
			if reader == nil {
				continue
			}
			f, ok := reader.Pop(int(sourcePopTimeout / time.Millisecond))
			if !ok {
				continue
			}
			anyPopped = true
			if f.IsStopFrame() {
				// Hand the stop frame to Process so bodies that hold
				// frames (Buffer, NeuralNetEvaluator) can flush first.
				b.mu.Lock()
				b.cache[name] = f
				b.mu.Unlock()
				poppedStop = true
				break
			}
			b.recordQueueLatency(f)
			b.mu.Lock()
			b.cache[name] = f
			b.mu.Unlock()
		}
		if !anyPopped {
			continue
		}
		b.tick()
		if poppedStop {
			if !b.sawStopFrame.Load() {
				b.forwardStopToAllSinks()
			}
			return
		}
		if b.sawStopFrame.Load() {
			return
		}
	}
}

func (b *Base) tick() {
	start := time.Now()
	if err := b.body.Process(b); err != nil {
		b.logger.Error("process error", "err", err)
	}
	b.recordLatency(time.Since(start))

	b.mu.Lock()
	for k := range b.cache {
		delete(b.cache, k)
	}
	b.mu.Unlock()
}
