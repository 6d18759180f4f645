// Package frame implements the Frame data model of §3: a typed, extensible
// record carrying payload and metadata between operators. The value
// variant is a closed sum type (Kind), not a bare map[string]interface{},
// so Get[T] is a checked type assertion rather than a blind cast.
package frame

import (
	"time"

	"github.com/saf-project/saf/errs"
)

// Reserved keys with dedicated accessors (§3).
const (
	KeyFrameID       = "frame_id"
	KeyCaptureTime   = "capture_time_micros"
	KeyStopFrame     = "stop_frame"
	KeyOriginalBytes = "original_bytes"
)

// Frame is a mapping from string keys to typed values. The zero value is
// not usable; use New. A Frame is owned by exactly one goroutine at a
// time (the operator currently holding it); StreamReader's queue is the
// only place a Frame crosses a goroutine boundary, and it always does so
// by move (single reader) or deep copy (fan-out), never by sharing.
type Frame struct {
	fields  map[string]value
	token   TokenRef
	tokenID uint64
}

// TokenRef is the optional back-reference to the FlowControlEntrance that
// issued a token to this frame. It is an identity used only for release,
// never an ownership handle (§3, §9 "Cyclic ownership risk").
type TokenRef interface {
	// Release returns the token identified by id to its issuing entrance.
	Release(id uint64)
}

// New returns an empty Frame.
func New() *Frame {
	return &Frame{fields: make(map[string]value)}
}

// Has reports whether key is present. It never fails.
func (f *Frame) Has(key string) bool {
	_, ok := f.fields[key]
	return ok
}

// Delete erases key if present; no-op otherwise.
func (f *Frame) Delete(key string) {
	delete(f.fields, key)
}

// Keys returns the set of field names currently set on f.
func (f *Frame) Keys() []string {
	out := make([]string, 0, len(f.fields))
	for k := range f.fields {
		out = append(out, k)
	}
	return out
}

func (f *Frame) set(key string, k Kind, raw interface{}) {
	f.fields[key] = value{kind: k, raw: raw}
}

// Get retrieves the value stored at key as T. It fails with KeyMissingError
// if absent, TypeMismatchError if the stored variant does not hold T.
func Get[T any](f *Frame, key string) (T, error) {
	var zero T
	v, ok := f.fields[key]
	if !ok {
		return zero, &errs.KeyMissingError{Key: key}
	}
	t, ok := v.raw.(T)
	if !ok {
		return zero, &errs.TypeMismatchError{Key: key, Want: kindName(zero), Have: v.kind.String()}
	}
	return t, nil
}

func kindName(zero interface{}) string {
	if k, ok := kindOf(zero); ok {
		return k.String()
	}
	return "unknown"
}

// Set inserts or overwrites the value at key. T must be one of the closed
// set of supported variants (§3); passing an unsupported T panics, since
// that is a programming error in the operator, not recoverable frame data.
func Set[T any](f *Frame, key string, v T) {
	k, ok := kindOf(v)
	if !ok {
		panic("frame: unsupported value type for Set")
	}
	f.set(key, k, v)
}

func kindOf(v interface{}) (Kind, bool) {
	switch v.(type) {
	case int32:
		return KindInt32, true
	case uint32:
		return KindUint32, true
	case int64:
		return KindInt64, true
	case uint64:
		return KindUint64, true
	case float32:
		return KindFloat32, true
	case float64:
		return KindFloat64, true
	case bool:
		return KindBool, true
	case time.Time:
		return KindTime, true
	case time.Duration:
		return KindDuration, true
	case string:
		return KindString, true
	case []byte:
		return KindBytes, true
	case Mat:
		return KindMat, true
	case []string:
		return KindVectorString, true
	case []float32:
		return KindVectorFloat, true
	case []float64:
		return KindVectorDouble, true
	case []int:
		return KindVectorInt, true
	case []Rect:
		return KindVectorRect, true
	case []Landmark:
		return KindVectorLandmark, true
	case [][]float32:
		return KindVectorFeature, true
	case []*Frame:
		return KindVectorFrame, true
	case map[int]float64:
		return KindDictIntFloat, true
	case map[int]bool:
		return KindDictIntBool, true
	case map[uint64]int64:
		return KindDictU64Int, true
	default:
		return 0, false
	}
}

// SetFrameID sets the monotonic frame_id assigned at the source camera.
func (f *Frame) SetFrameID(id uint64) { Set(f, KeyFrameID, id) }

// FrameID returns the frame_id, or 0 if unset.
func (f *Frame) FrameID() uint64 {
	id, err := Get[uint64](f, KeyFrameID)
	if err != nil {
		return 0
	}
	return id
}

// SetCaptureTime sets the capture_time_micros timestamp.
func (f *Frame) SetCaptureTime(t time.Time) { Set(f, KeyCaptureTime, t) }

// CaptureTime returns the capture_time_micros timestamp, or the zero time.
func (f *Frame) CaptureTime() time.Time {
	t, err := Get[time.Time](f, KeyCaptureTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetStopFrame is syntactic sugar over the reserved "stop_frame" key.
func (f *Frame) SetStopFrame(v bool) { Set(f, KeyStopFrame, v) }

// IsStopFrame reports whether this frame is the end-of-stream sentinel.
func (f *Frame) IsStopFrame() bool {
	v, err := Get[bool](f, KeyStopFrame)
	if err != nil {
		return false
	}
	return v
}

// NewStopFrame returns a new frame whose only field is stop_frame set to
// true; it carries no frame_id or capture time.
func NewStopFrame() *Frame {
	f := New()
	f.SetStopFrame(true)
	return f
}

// SetToken stamps f with a back-reference to the entrance that issued the
// token and the id under which it is registered; ClearToken removes it.
func (f *Frame) SetToken(id uint64, ref TokenRef) {
	f.tokenID = id
	f.token = ref
}

// TokenID returns the id a token was registered under; valid only when
// HasToken is true.
func (f *Frame) TokenID() uint64 { return f.tokenID }

// HasToken reports whether f currently carries a flow-control token.
func (f *Frame) HasToken() bool { return f.token != nil }

// ClearToken releases the stamp without notifying the entrance; callers
// that must also release the token call Release() first.
func (f *Frame) ClearToken() {
	f.token = nil
	f.tokenID = 0
}

// Release releases the token back to its issuing entrance (if any) and
// clears the stamp, matching the FlowControlExit contract (§4.4).
func (f *Frame) Release() {
	if f.token != nil {
		f.token.Release(f.tokenID)
	}
	f.ClearToken()
}

// RawSizeBytes returns the approximate byte size of the listed fields
// (empty fields ⇒ all fields), used for telemetry/diagnostics.
func (f *Frame) RawSizeBytes(fields ...string) int {
	if len(fields) == 0 {
		fields = f.Keys()
	}
	total := 0
	for _, key := range fields {
		v, ok := f.fields[key]
		if !ok {
			continue
		}
		total += sizeOfValue(v)
	}
	return total
}

func sizeOfValue(v value) int {
	switch v.kind {
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64, KindTime, KindDuration:
		return 8
	case KindBool:
		return 1
	case KindString:
		return len(v.raw.(string))
	case KindBytes:
		return len(v.raw.([]byte))
	case KindMat:
		return v.raw.(Mat).ByteSize()
	case KindVectorString:
		n := 0
		for _, s := range v.raw.([]string) {
			n += len(s)
		}
		return n
	case KindVectorFloat:
		return 4 * len(v.raw.([]float32))
	case KindVectorDouble:
		return 8 * len(v.raw.([]float64))
	case KindVectorInt:
		return 8 * len(v.raw.([]int))
	case KindVectorRect:
		return 16 * len(v.raw.([]Rect))
	case KindVectorLandmark:
		return 40 * len(v.raw.([]Landmark))
	case KindVectorFeature:
		n := 0
		for _, feat := range v.raw.([][]float32) {
			n += 4 * len(feat)
		}
		return n
	case KindVectorFrame:
		n := 0
		for _, nested := range v.raw.([]*Frame) {
			n += nested.RawSizeBytes()
		}
		return n
	case KindDictIntFloat:
		return 12 * len(v.raw.(map[int]float64))
	case KindDictIntBool:
		return 9 * len(v.raw.(map[int]bool))
	case KindDictU64Int:
		return 16 * len(v.raw.(map[uint64]int64))
	default:
		return 0
	}
}

// CloneWith returns a deep copy of f restricted to the named fields (empty
// ⇒ all fields). Binary byte arrays ("original_bytes") are always
// deep-copied to avoid aliasing large payloads, per §3; subsequent
// mutation of the clone never changes f.
func (f *Frame) CloneWith(fields ...string) *Frame {
	if len(fields) == 0 {
		fields = f.Keys()
	}
	out := New()
	for _, key := range fields {
		v, ok := f.fields[key]
		if !ok {
			continue
		}
		out.fields[key] = deepCopyValue(v)
	}
	// The flow-control token is metadata about the frame's lineage, not a
	// field value; every clone produced by a fan-out carries it so
	// whichever reader's path reaches a FlowControlExit releases it.
	// Entrance.release is idempotent, so duplicate clones releasing the
	// same id is safe.
	out.token = f.token
	out.tokenID = f.tokenID
	return out
}

func deepCopyValue(v value) value {
	switch v.kind {
	case KindBytes:
		b := v.raw.([]byte)
		cp := make([]byte, len(b))
		copy(cp, b)
		return value{kind: v.kind, raw: cp}
	case KindMat:
		m := v.raw.(Mat)
		cp := make([]byte, len(m.Data))
		copy(cp, m.Data)
		m.Data = cp
		return value{kind: v.kind, raw: m}
	case KindVectorString:
		s := v.raw.([]string)
		cp := append([]string(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorFloat:
		s := v.raw.([]float32)
		cp := append([]float32(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorDouble:
		s := v.raw.([]float64)
		cp := append([]float64(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorInt:
		s := v.raw.([]int)
		cp := append([]int(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorRect:
		s := v.raw.([]Rect)
		cp := append([]Rect(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorLandmark:
		s := v.raw.([]Landmark)
		cp := append([]Landmark(nil), s...)
		return value{kind: v.kind, raw: cp}
	case KindVectorFeature:
		s := v.raw.([][]float32)
		cp := make([][]float32, len(s))
		for i, feat := range s {
			cp[i] = append([]float32(nil), feat...)
		}
		return value{kind: v.kind, raw: cp}
	case KindVectorFrame:
		s := v.raw.([]*Frame)
		cp := make([]*Frame, len(s))
		for i, nested := range s {
			cp[i] = nested.CloneWith()
		}
		return value{kind: v.kind, raw: cp}
	case KindDictIntFloat:
		m := v.raw.(map[int]float64)
		cp := make(map[int]float64, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return value{kind: v.kind, raw: cp}
	case KindDictIntBool:
		m := v.raw.(map[int]bool)
		cp := make(map[int]bool, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return value{kind: v.kind, raw: cp}
	case KindDictU64Int:
		m := v.raw.(map[uint64]int64)
		cp := make(map[uint64]int64, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return value{kind: v.kind, raw: cp}
	default:
		// scalars are already copy-by-value
		return v
	}
}
