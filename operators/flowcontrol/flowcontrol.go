// Package flowcontrol registers the FlowControlEntrance and
// FlowControlExit operator kinds of §4.4/§4.6 as thin operator.Body
// wrappers around the core flowcontrol package's token-bucket Entrance
// and Exit primitives, so a pipeline JSON spec can name them directly.
package flowcontrol

import (
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	coreflow "github.com/saf-project/saf/flowcontrol"
	"github.com/saf-project/saf/operator"
)

// EntranceBody stamps every frame passing through with a flow-control
// token, blocking when the configured budget is exhausted.
type EntranceBody struct {
	Budget     int
	SweepEvery time.Duration

	entrance  *coreflow.Entrance
	logger    *log.Logger
	watchOnce sync.Once
}

func (b *EntranceBody) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	b.entrance = coreflow.NewEntrance(b.Budget, b.logger)
	return nil
}

// Process acquires a token for f, blocking if the budget is exhausted.
// The worker loop only observes op.HaltCh() between Process calls, so a
// Process parked inside Acquire would otherwise never see a pipeline
// stop request; watchOnce spawns a one-shot watcher, on the first call,
// that closes the entrance as soon as the operator is halted, waking
// Acquire the same way a FlowControlExit releasing the last token does.
func (b *EntranceBody) Process(op *operator.Base) error {
	b.watchOnce.Do(func() {
		go func() {
			<-op.HaltCh()
			b.entrance.Close()
		}()
	})

	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return op.PushFrame("output", f)
	}

	stamped, err := b.entrance.Acquire(f)
	if err != nil {
		return errs.NewRuntimeError("flowcontrol: acquire: %v", err)
	}
	return op.PushFrame("output", stamped)
}

func (b *EntranceBody) OnStop() {
	if b.entrance != nil {
		b.entrance.Close()
	}
}

// ExitBody releases a frame's flow-control token once it reaches the end
// of a controlled pipeline segment.
type ExitBody struct {
	exit *coreflow.Exit
}

func (b *ExitBody) Init() error {
	b.exit = coreflow.NewExit()
	return nil
}

func (b *ExitBody) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	b.exit.Release(f)
	return op.PushFrame("output", f)
}

func (b *ExitBody) OnStop() {}

func init() {
	operator.Register("FlowControlEntrance", func(name string, params map[string]interface{}) (operator.Operator, error) {
		budget := 1
		if v, ok := params["budget"].(string); ok {
			if n, err := strconv.Atoi(v); err == nil {
				budget = n
			}
		}
		body := &EntranceBody{Budget: budget}
		return operator.NewBase(name, "FlowControlEntrance", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
	operator.Register("FlowControlExit", func(name string, params map[string]interface{}) (operator.Operator, error) {
		return operator.NewBase(name, "FlowControlExit", []string{"input"}, []string{"output"}, &ExitBody{}, log.Default()), nil
	})
}
