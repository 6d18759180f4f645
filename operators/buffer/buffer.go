// Package buffer implements the Buffer(N) operator of §4.6: delays the
// stream by exactly N frames once the internal queue has filled, using
// gopkg.in/eapache/channels.v1's InfiniteChannel as the FIFO so the
// operator's worker loop never has to hand-roll a ring buffer.
package buffer

import (
	"strconv"

	"github.com/charmbracelet/log"
	channels "gopkg.in/eapache/channels.v1"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Body implements operator.Body for Buffer.
type Body struct {
	N     int
	queue *channels.InfiniteChannel
	depth int
}

func (b *Body) Init() error {
	if b.N <= 0 {
		b.N = 1
	}
	b.queue = channels.NewInfiniteChannel()
	return nil
}

// Process enqueues the incoming frame and, once N frames are buffered,
// dequeues and forwards the oldest one. Stop frames flush the queue
// immediately in arrival order before the stop frame itself is forwarded.
func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}

	if f.IsStopFrame() {
		for b.depth > 0 {
			v := (<-b.queue.Out()).(*frame.Frame)
			b.depth--
			if err := op.PushFrame("output", v); err != nil {
				return err
			}
		}
		return op.PushFrame("output", f)
	}

	b.queue.In() <- f
	b.depth++
	if b.depth <= b.N {
		return nil
	}
	v := (<-b.queue.Out()).(*frame.Frame)
	b.depth--
	return op.PushFrame("output", v)
}

func (b *Body) OnStop() {
	if b.queue != nil {
		b.queue.Close()
	}
}

func init() {
	operator.Register("Buffer", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{N: 1}
		if v, ok := params["n"].(string); ok {
			if n, err := strconv.Atoi(v); err == nil {
				body.N = n
			}
		}
		return operator.NewBase(name, "Buffer", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
