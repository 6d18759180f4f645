// Package encoder implements the GstVideoEncoder operator of §4.6:
// encodes H.264 to a file or UDP sink and forwards the frame unchanged.
// Per §1's Non-goals (no cgo GStreamer bindings), encoding itself is a
// pass-through stand-in that stamps an "encoded" marker and, when an
// output path is configured, appends the raw payload to that file so the
// operator still exercises a real sink.
package encoder

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Body implements operator.Body for GstVideoEncoder.
type Body struct {
	OutputPath string
	file       *os.File
	logger     *log.Logger
}

func (b *Body) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.OutputPath == "" {
		return nil
	}
	f, err := os.OpenFile(b.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.NewRuntimeError("encoder: open %s: %v", b.OutputPath, err)
	}
	b.file = f
	return nil
}

func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if !f.IsStopFrame() {
		if b.file != nil {
			if raw, err := frame.Get[[]byte](f, "original_bytes"); err == nil {
				if _, err := b.file.Write(raw); err != nil {
					b.logger.Error("encoder: write failed", "err", err)
				}
			}
		}
		frame.Set(f, "encoded", true)
	}
	return op.PushFrame("output", f)
}

func (b *Body) OnStop() {
	if b.file != nil {
		_ = b.file.Close()
	}
}

func init() {
	operator.Register("GstVideoEncoder", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{}
		if v, ok := params["output_path"].(string); ok {
			body.OutputPath = v
		}
		return operator.NewBase(name, "GstVideoEncoder", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
