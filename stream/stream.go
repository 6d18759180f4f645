package stream

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
)

// Stream is a named, type-erased fan-out channel from one producer
// operator to any number of StreamReaders, each with its own bounded
// queue. Stream itself holds no frames; it only routes.
type Stream struct {
	Name string

	mu      sync.Mutex
	readers []*StreamReader
	seq     uint64
	stopped bool

	logger *log.Logger
}

// New returns an empty Stream. name is used for telemetry labels and log
// messages, matching the sink-name-qualified logging the teacher uses
// throughout (e.g. "client_socket", "client" sub-loggers in
// server/cborplugin/client.go).
func New(name string, logger *log.Logger) *Stream {
	if logger == nil {
		logger = log.Default()
	}
	return &Stream{Name: name, logger: logger.With("stream", name)}
}

// Subscribe registers a new reader with its own queue depth (default 16
// when maxBufferSize <= 0) and returns it.
func (s *Stream) Subscribe(maxBufferSize int) *StreamReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("r%d", atomic.AddUint64(&s.seq, 1))
	r := newReader(s.Name, id, maxBufferSize)
	if s.stopped {
		r.stop()
	}
	s.readers = append(s.readers, r)
	return r
}

// Unsubscribe removes reader; the reader handle is invalid after this call.
func (s *Stream) Unsubscribe(r *StreamReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cand := range s.readers {
		if cand == r {
			s.readers = append(s.readers[:i], s.readers[i+1:]...)
			r.stop()
			return
		}
	}
}

// Push fans f out to every registered reader: zero readers drops the
// frame with a debug log (§9's standardized "no readers" behavior); one
// reader moves f directly into its queue; more than one reader gets an
// independent deep copy each, so no two readers ever observe the same
// Frame value (§5 "Shared-resource policy").
func (s *Stream) Push(f *frame.Frame, block bool) error {
	s.mu.Lock()
	readers := make([]*StreamReader, len(s.readers))
	copy(readers, s.readers)
	s.mu.Unlock()

	logDrop := func(err error) {
		if d, ok := err.(*errs.DroppedError); ok {
			if d.Severe {
				s.logger.Error("dropped token-bearing frame: reader full (configuration error)", "reader", d.Reader)
			} else {
				s.logger.Warn("dropped frame: reader full", "reader", d.Reader)
			}
		}
	}

	switch len(readers) {
	case 0:
		s.logger.Debug("dropping frame: no subscribed readers")
		return nil
	case 1:
		err := readers[0].Push(f, block)
		logDrop(err)
		return err
	default:
		var firstErr error
		for _, r := range readers {
			err := r.Push(f.CloneWith(), block)
			logDrop(err)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

// Stop stops every reader, unblocking any pending pushes/pops.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.stopped = true
	readers := make([]*StreamReader, len(s.readers))
	copy(readers, s.readers)
	s.mu.Unlock()
	for _, r := range readers {
		r.stop()
	}
}

// ReaderCount returns the number of currently subscribed readers.
func (s *Stream) ReaderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readers)
}
