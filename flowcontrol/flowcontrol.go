// Package flowcontrol implements the end-to-end token-based backpressure
// mechanism of §4.4: a fixed-size token budget is acquired once per
// frame at a FlowControlEntrance operator and released when the frame,
// or the first of its fan-out copies, reaches the matching
// FlowControlExit (or is dropped by an operator that releases it),
// bounding the number of frames in flight across a pipeline segment.
//
// Outstanding tokens are additionally indexed by acquire time in an AVL
// tree, the same shape server/internal/decoy/decoy.go uses to index
// surbCtx by ETA (surbETAs) so a periodic sweep can walk the oldest
// entries in order without sorting. Here the sweep never evicts — a
// token is only ever removed via Release — it exists purely to surface
// frames that are suspiciously slow to retire (§7 observability).
package flowcontrol

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/yawning/avl.git"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
)

// outstanding is one entry in the acquire-time index.
type outstanding struct {
	id         uint64
	acquiredAt time.Time
	node       *avl.Node
}

func compareOutstanding(a, b interface{}) int {
	oa, ob := a.(*outstanding), b.(*outstanding)
	switch {
	case oa.acquiredAt.Before(ob.acquiredAt):
		return -1
	case oa.acquiredAt.After(ob.acquiredAt):
		return 1
	case oa.id < ob.id:
		return -1
	case oa.id > ob.id:
		return 1
	default:
		return 0
	}
}

// Entrance is the token source: a fixed budget of N outstanding tokens,
// acquired here and released at the matching Exit (or by any operator
// that determines the frame's lineage has been fully retired, e.g. a
// Throttler dropping a duplicate). Acquire blocks while the budget is
// exhausted.
type Entrance struct {
	budget int
	tokens chan struct{} // pre-filled with budget permits; Acquire consumes one, release returns one

	mu      sync.Mutex
	nextID  uint64
	byID    map[uint64]*outstanding
	byETA   *avl.Tree
	stopped bool
	closeCh chan struct{}

	logger *log.Logger
}

// NewEntrance constructs an Entrance with a fixed budget of outstanding
// tokens. budget <= 0 is treated as 1.
func NewEntrance(budget int, logger *log.Logger) *Entrance {
	if budget <= 0 {
		budget = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	tokens := make(chan struct{}, budget)
	for i := 0; i < budget; i++ {
		tokens <- struct{}{}
	}
	return &Entrance{
		budget:  budget,
		tokens:  tokens,
		byID:    make(map[uint64]*outstanding),
		byETA:   avl.New(compareOutstanding),
		closeCh: make(chan struct{}),
		logger:  logger.With("component", "flowcontrol.Entrance"),
	}
}

// Budget returns the configured token budget.
func (e *Entrance) Budget() int { return e.budget }

// Outstanding returns the current number of unreleased tokens.
func (e *Entrance) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.byID)
}

// tokenRef implements frame.TokenRef, bridging a Frame's token fields
// back to the Entrance that minted them.
type tokenRef struct {
	e *Entrance
}

func (t *tokenRef) Release(id uint64) { t.e.release(id) }

// Acquire blocks until a token is available (or the Entrance is closed),
// stamps f with the new token, and returns f. Acquiring for a frame that
// already carries a token is a no-op — tokens are not reentrant.
func (e *Entrance) Acquire(f *frame.Frame) (*frame.Frame, error) {
	if f.HasToken() {
		return f, nil
	}

	select {
	case <-e.tokens:
	case <-e.closeCh:
		return nil, &errs.StoppedError{What: "flowcontrol entrance"}
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	o := &outstanding{id: id, acquiredAt: time.Now()}
	o.node = e.byETA.Insert(o)
	e.byID[id] = o
	e.mu.Unlock()

	f.SetToken(id, &tokenRef{e: e})
	return f, nil
}

func (e *Entrance) release(id uint64) {
	e.mu.Lock()
	o, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.byID, id)
	e.byETA.Remove(o.node)
	e.mu.Unlock()

	e.tokens <- struct{}{}
}

// Sweep logs every outstanding token older than maxAge, oldest first. It
// never releases a token itself — only Release (via a Frame's lineage
// reaching an Exit) does that — this is purely an observability aid
// mirroring decoy.sweepSURBCtxs's stale-SURB warning sweep.
func (e *Entrance) Sweep(maxAge time.Duration) (stale int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.byETA.Len() == 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	iter := e.byETA.Iterator(avl.Forward)
	for node := iter.First(); node != nil; node = iter.Next() {
		o := node.Value.(*outstanding)
		if o.acquiredAt.After(cutoff) {
			break
		}
		stale++
		e.logger.Warn("stale outstanding token", "id", o.id, "age", time.Since(o.acquiredAt))
	}
	return stale
}

// Close marks the Entrance stopped, unblocking any pending Acquire.
func (e *Entrance) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.closeCh)
}

// Exit releases the token (if any) carried by every frame it sees. Fan-out
// copies of a frame share its token id, so the token is returned to the
// Entrance as soon as the first copy reaches any Exit; later copies
// releasing the same id are no-ops. Release does not wait for the other
// branches.
type Exit struct{}

// NewExit constructs an Exit. Exit is stateless: releasing is just
// f.Release(), exposed as a method for symmetry with Entrance and so it
// reads naturally from an operator's Process body.
func NewExit() *Exit { return &Exit{} }

// Release releases f's token, if it carries one. Safe to call on a frame
// with no token (no-op) or one already released.
func (*Exit) Release(f *frame.Frame) {
	f.Release()
}
