// Package worker provides the goroutine-lifecycle embeddable every
// long-lived SAF component (operators, flow-control gates, transports)
// builds on, mirroring the Worker type used throughout the katzenpost
// lineage this module descends from.
package worker

import "sync"

// Worker manages the lifecycle of one or more goroutines launched with Go.
// Embed it, call Go to start background work, and call Halt to request
// termination and wait for every launched goroutine to exit.
type Worker struct {
	haltOnce sync.Once
	haltCh   chan struct{}
	initOnce sync.Once
	wg       sync.WaitGroup
}

func (w *Worker) init() {
	w.initOnce.Do(func() {
		w.haltCh = make(chan struct{})
	})
}

// HaltCh returns the channel that is closed when Halt is called.  Worker
// loops select on this channel alongside their data/timeout channels.
func (w *Worker) HaltCh() chan struct{} {
	w.init()
	return w.haltCh
}

// Go launches fn in a new goroutine tracked by this Worker.
func (w *Worker) Go(fn func()) {
	w.init()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Halt closes HaltCh (idempotently) and blocks until every goroutine
// launched via Go has returned.
func (w *Worker) Halt() {
	w.init()
	w.haltOnce.Do(func() {
		close(w.haltCh)
	})
	w.wg.Wait()
}

// IsHalted reports whether Halt has been called, without blocking.
func (w *Worker) IsHalted() bool {
	w.init()
	select {
	case <-w.haltCh:
		return true
	default:
		return false
	}
}
