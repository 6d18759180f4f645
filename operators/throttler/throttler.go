// Package throttler implements the Throttler(fps) operator of §4.6: caps
// the rate of frames forwarded downstream to at most fps per second,
// dropping the rest. A dropped frame still carrying a flow-control token
// (see flowcontrol) has that token released immediately so it does not
// starve an upstream Entrance's budget.
package throttler

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/operator"
)

// Body implements operator.Body for Throttler.
type Body struct {
	FPS      float64
	period   time.Duration
	lastSent time.Time

	dropped uint64
}

func (b *Body) Init() error {
	if b.FPS > 0 {
		b.period = time.Duration(float64(time.Second) / b.FPS)
	}
	return nil
}

// Process forwards the input frame only if at least one period has
// elapsed since the last forwarded frame; otherwise it releases the
// frame's flow-control token (if any) and drops it.
func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return op.PushFrame("output", f)
	}

	now := time.Now()
	if b.period > 0 && now.Sub(b.lastSent) < b.period {
		b.dropped++
		if f.HasToken() {
			f.Release()
		}
		return nil
	}
	b.lastSent = now
	return op.PushFrame("output", f)
}

func (b *Body) Dropped() uint64 { return b.dropped }

func (b *Body) OnStop() {}

func init() {
	operator.Register("Throttler", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{}
		if v, ok := params["fps"].(string); ok {
			if fps, err := strconv.ParseFloat(v, 64); err == nil {
				body.FPS = fps
			}
		}
		return operator.NewBase(name, "Throttler", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
