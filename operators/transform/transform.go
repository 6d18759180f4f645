// Package transform implements the ImageTransformer operator of §4.6:
// resize/crop/rotate image-geometry adjustments. Per §1's Non-goals
// (no cgo image codecs), the actual pixel manipulation is a pure-Go
// stand-in that rewrites the frame's declared width/height/orientation
// metadata rather than decoding and re-encoding image bytes; a real
// deployment would swap this Body for one backed by an external codec,
// the same seam operators/nne uses for out-of-process model backends.
package transform

import (
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Op selects the geometric transform Body applies.
type Op string

const (
	OpResize Op = "resize"
	OpCrop   Op = "crop"
	OpRotate Op = "rotate"
)

// Body implements operator.Body for ImageTransformer.
type Body struct {
	Op            Op
	TargetWidth   int32
	TargetHeight  int32
	CropX, CropY  int32
	RotateDegrees int32
}

func (b *Body) Init() error { return nil }

// Process rewrites the frame's int32 "width"/"height" fields (and, for
// rotate, sets "rotate_degrees") to reflect the configured transform. It
// does not read or write "image" or "original_bytes": the byte payload is
// passed through unchanged since no real codec is wired in this
// Non-goals-scoped build.
func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}

	switch b.Op {
	case OpResize:
		frame.Set(f, "width", b.TargetWidth)
		frame.Set(f, "height", b.TargetHeight)
	case OpCrop:
		w, _ := frame.Get[int32](f, "width")
		h, _ := frame.Get[int32](f, "height")
		cw := w - b.CropX
		ch := h - b.CropY
		if cw < 0 {
			cw = 0
		}
		if ch < 0 {
			ch = 0
		}
		frame.Set(f, "width", cw)
		frame.Set(f, "height", ch)
	case OpRotate:
		w, _ := frame.Get[int32](f, "width")
		h, _ := frame.Get[int32](f, "height")
		if b.RotateDegrees%180 != 0 {
			frame.Set(f, "width", h)
			frame.Set(f, "height", w)
		}
		frame.Set(f, "rotate_degrees", b.RotateDegrees)
	}

	return op.PushFrame("output", f)
}

func (b *Body) OnStop() {}

func paramString(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func paramInt32(params map[string]interface{}, key string) int32 {
	if v, ok := paramString(params, key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return int32(n)
		}
	}
	return 0
}

func init() {
	operator.Register("ImageTransformer", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{Op: OpResize}
		if v, ok := paramString(params, "op"); ok {
			body.Op = Op(v)
		}
		body.TargetWidth = paramInt32(params, "width")
		body.TargetHeight = paramInt32(params, "height")
		body.CropX = paramInt32(params, "crop_x")
		body.CropY = paramInt32(params, "crop_y")
		body.RotateDegrees = paramInt32(params, "rotate_degrees")
		return operator.NewBase(name, "ImageTransformer", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
