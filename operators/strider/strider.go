// Package strider implements the Strider(N) operator of §4.6: forwards
// every Nth frame and drops the rest, releasing any flow-control token
// held by a dropped frame.
package strider

import (
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/operator"
)

// Body implements operator.Body for Strider.
type Body struct {
	N       int
	count   int
	dropped uint64
}

func (b *Body) Init() error {
	if b.N <= 0 {
		b.N = 1
	}
	return nil
}

func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return op.PushFrame("output", f)
	}

	b.count++
	if b.count%b.N != 0 {
		b.dropped++
		if f.HasToken() {
			f.Release()
		}
		return nil
	}
	return op.PushFrame("output", f)
}

func (b *Body) Dropped() uint64 { return b.dropped }

func (b *Body) OnStop() {}

func init() {
	operator.Register("Strider", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{N: 1}
		if v, ok := params["n"].(string); ok {
			if n, err := strconv.Atoi(v); err == nil {
				body.N = n
			}
		}
		return operator.NewBase(name, "Strider", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
