// Package stream implements the Stream/StreamReader pub-sub primitive of
// §4.2: one producer fanning out to many independent, bounded-queue
// readers. The signalling idiom (buffered "something changed" channels
// selected on alongside a timer) mirrors stream/stream.go's
// onFlush/onRead/onWrite channels rather than sync.Cond, since a
// condition variable with a wait-timeout is awkward in Go and the
// teacher's own idiom for this exact problem is a non-blocking send on a
// capacity-1 channel.
package stream

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/internal/ewma"
)

const defaultBufferSize = 16

var (
	pushedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saf_stream_reader_pushed_total",
		Help: "Frames accepted into a StreamReader's queue.",
	}, []string{"stream", "reader"})
	poppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saf_stream_reader_popped_total",
		Help: "Frames popped from a StreamReader's queue.",
	}, []string{"stream", "reader"})
	droppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saf_stream_reader_dropped_total",
		Help: "Frames dropped by a non-blocking, full StreamReader.",
	}, []string{"stream", "reader"})
)

func init() {
	prometheus.MustRegister(pushedTotal, poppedTotal, droppedTotal)
}

// StreamReader is a per-consumer bounded FIFO view of a Stream.
type StreamReader struct {
	id   string
	from string

	mu       sync.Mutex
	queue    []*frame.Frame
	capacity int
	stopped  bool

	notEmpty chan struct{}
	notFull  chan struct{}

	pushRate *ewma.Rate
	popRate  *ewma.Rate
}

func newReader(streamName, id string, capacity int) *StreamReader {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &StreamReader{
		id:       id,
		from:     streamName,
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		pushRate: ewma.New(),
		popRate:  ewma.New(),
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Push is called by the parent Stream only. If block, it waits while the
// queue is full until either space appears or the reader stops. If not
// block and the queue is full, the frame is dropped and counted in
// saf_stream_reader_dropped_total, and Push returns a *errs.DroppedError
// whose Severe is true if the frame carries a flow-control token (§4.2,
// §7). The parent Stream logs the drop: at error severity when Severe,
// at warning severity otherwise.
func (r *StreamReader) Push(f *frame.Frame, block bool) error {
	r.mu.Lock()
	for len(r.queue) >= r.capacity && !r.stopped {
		if !block {
			r.mu.Unlock()
			droppedTotal.WithLabelValues(r.from, r.id).Inc()
			if f.HasToken() {
				return &errs.DroppedError{Reader: r.id, Severe: true}
			}
			return &errs.DroppedError{Reader: r.id, Severe: false}
		}
		r.mu.Unlock()
		<-r.notFull
		r.mu.Lock()
	}
	if r.stopped {
		r.mu.Unlock()
		return &errs.StoppedError{What: "stream reader"}
	}
	r.queue = append(r.queue, f)
	r.pushRate.Tick(time.Now())
	r.mu.Unlock()
	pushedTotal.WithLabelValues(r.from, r.id).Inc()
	wake(r.notEmpty)
	return nil
}

// Pop blocks until a frame is available, the reader is stopped, or (if
// timeoutMs > 0) the timeout elapses. It returns (frame, true) on
// success and (nil, false) on timeout or stop.
func (r *StreamReader) Pop(timeoutMs int) (*frame.Frame, bool) {
	var deadline <-chan time.Time
	if timeoutMs > 0 {
		timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			f := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			r.popRate.Tick(time.Now())
			poppedTotal.WithLabelValues(r.from, r.id).Inc()
			wake(r.notFull)
			return f, true
		}
		if r.stopped {
			r.mu.Unlock()
			return nil, false
		}
		r.mu.Unlock()

		select {
		case <-r.notEmpty:
		case <-deadline:
			return nil, false
		}
	}
}

// stop unblocks any pending push/pop on this reader.
func (r *StreamReader) stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()
	wake(r.notEmpty)
	wake(r.notFull)
}

// PushFPS returns the EWMA push rate, in frames/sec.
func (r *StreamReader) PushFPS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushRate.Value()
}

// PopFPS returns the EWMA pop rate, in frames/sec.
func (r *StreamReader) PopFPS() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.popRate.Value()
}

// HistoricalFPS returns the average pop rate from since until now: the
// reader's lifetime pop count divided by the elapsed seconds (as opposed
// to the decaying PopFPS estimate).
func (r *StreamReader) HistoricalFPS(since time.Time) float64 {
	r.mu.Lock()
	total := r.popRate.Total()
	r.mu.Unlock()
	elapsed := time.Since(since).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total) / elapsed
}

// Depth returns the current number of queued frames.
func (r *StreamReader) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
