// Package camera implements the Camera operator of §4.6: a source with
// no inputs that produces frames carrying original image bytes, a
// frame_id, and a capture_time_micros timestamp, pulled from a
// Source (a small seam so tests and the reference CLI apps can supply a
// synthetic or file-backed byte generator without a real video capture
// backend — out of scope per §1's cgo/codec Non-goals).
package camera

import (
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Source yields successive raw frame payloads. Next returns (nil, false)
// at end of stream. A file-backed Source (looping over a video file's
// frames) would implement this the same way a synthetic generator does.
type Source interface {
	Next() ([]byte, bool)
	Close() error
}

// LoopSource replays a fixed list of payloads, optionally looping forever
// (RestartOnEOF) — the synthetic stand-in for an actual capture device.
type LoopSource struct {
	mu       sync.Mutex
	payloads [][]byte
	idx      int
	restart  bool
}

// NewLoopSource returns a Source cycling through payloads. If restart is
// false, Next returns false once every payload has been served.
func NewLoopSource(payloads [][]byte, restart bool) *LoopSource {
	return &LoopSource{payloads: payloads, restart: restart}
}

func (s *LoopSource) Next() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil, false
	}
	if s.idx >= len(s.payloads) {
		if !s.restart {
			return nil, false
		}
		s.idx = 0
	}
	p := s.payloads[s.idx]
	s.idx++
	return p, true
}

func (s *LoopSource) Close() error { return nil }

// Body implements operator.Body for Camera.
type Body struct {
	Source       Source
	Width        int32
	Height       int32
	FPS          float64
	RestartOnEOF bool

	mu      sync.Mutex
	nextID  uint64
	period  time.Duration
	lastRun time.Time
	atEOF   bool
	logger  *log.Logger
}

func (b *Body) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.FPS > 0 {
		b.period = time.Duration(float64(time.Second) / b.FPS)
	}
	return nil
}

// Process pulls the next payload from Source, paces itself to FPS (if
// configured) by sleeping off any remaining period, and pushes a frame
// carrying "original_bytes", "width", "height", frame_id and
// capture_time_micros. At end of stream with no restart configured,
// Process pushes a stop frame once and thereafter is a no-op.
func (b *Body) Process(op *operator.Base) error {
	if b.atEOF {
		return nil
	}

	if b.period > 0 {
		elapsed := time.Since(b.lastRun)
		if elapsed < b.period {
			time.Sleep(b.period - elapsed)
		}
		b.lastRun = time.Now()
	}

	payload, ok := b.Source.Next()
	if !ok {
		b.atEOF = true
		return op.PushFrame("output", frame.NewStopFrame())
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	f := frame.New()
	f.SetFrameID(id)
	f.SetCaptureTime(time.Now())
	frame.Set(f, "original_bytes", payload)
	frame.Set(f, "width", b.Width)
	frame.Set(f, "height", b.Height)
	return op.PushFrame("output", f)
}

func (b *Body) OnStop() {
	if b.Source != nil {
		_ = b.Source.Close()
	}
}

func paramString(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func init() {
	operator.Register("Camera", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{Source: NewLoopSource([][]byte{{}}, true)}
		if v, ok := paramString(params, "fps"); ok {
			if fps, err := strconv.ParseFloat(v, 64); err == nil {
				body.FPS = fps
			}
		}
		if v, ok := paramString(params, "width"); ok {
			if w, err := strconv.Atoi(v); err == nil {
				body.Width = int32(w)
			}
		}
		if v, ok := paramString(params, "height"); ok {
			if h, err := strconv.Atoi(v); err == nil {
				body.Height = int32(h)
			}
		}
		if v, ok := paramString(params, "restart_on_eof"); ok {
			if r, err := strconv.ParseBool(v); err == nil {
				body.RestartOnEOF = r
				body.Source = NewLoopSource([][]byte{{}}, r)
			}
		}
		return operator.NewBase(name, "Camera", nil, []string{"output"}, body, log.Default()), nil
	})
}
