package frame

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saf-project/saf/errs"
)

// timeLayout implements the "YYYY-Mon-DD HH:MM:SS.uuuuuu" wire format of §6.
const timeLayout = "2006-Jan-02 15:04:05.000000"

// wireField is the on-the-wire shape of one Frame field. Kind is carried
// explicitly alongside the value (rather than inferred structurally from
// the JSON payload) the same way server/cborplugin/client.go registers an
// explicit CBOR tag per message type: JSON numbers alone cannot
// distinguish int32 from float64 from a one-element []float32, so an
// unambiguous round-trip (§8) needs the tag.
type wireField struct {
	Kind  string      `json:"kind"`
	Value interface{} `json:"value"`
}

// ToJSON emits a structured document: an object whose keys are field
// names and whose values are {kind, value} envelopes following the §6
// variant mapping (numerics as JSON numbers, time points as ISO-like
// strings, byte arrays as arrays of small integers, Rect/Landmark as a
// single-key nested object, Mat as an OpenCV FileStorage-style object).
func (f *Frame) ToJSON() ([]byte, error) {
	doc := make(map[string]wireField, len(f.fields))
	for key, v := range f.fields {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, errs.NewRuntimeError("frame: encode field %q: %w", key, err)
		}
		doc[key] = wireField{Kind: v.kind.String(), Value: wv}
	}
	return json.Marshal(doc)
}

// FromJSON parses a document produced by ToJSON back into a Frame.
func FromJSON(data []byte) (*Frame, error) {
	var doc map[string]wireField
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.NewRuntimeError("frame: decode: %w", err)
	}
	f := New()
	for key, wf := range doc {
		v, err := decodeValue(wf)
		if err != nil {
			return nil, errs.NewRuntimeError("frame: decode field %q: %w", key, err)
		}
		f.fields[key] = v
	}
	return f, nil
}

func encodeValue(v value) (interface{}, error) {
	switch v.kind {
	case KindTime:
		return v.raw.(time.Time).UTC().Format(timeLayout), nil
	case KindDuration:
		return int64(v.raw.(time.Duration)), nil
	case KindBytes:
		b := v.raw.([]byte)
		ints := make([]int, len(b))
		for i, c := range b {
			ints[i] = int(c)
		}
		return ints, nil
	case KindMat:
		m := v.raw.(Mat)
		ints := make([]int, len(m.Data))
		for i, c := range m.Data {
			ints[i] = int(c)
		}
		return map[string]interface{}{
			"rows": m.Rows, "cols": m.Cols, "channels": m.Channels,
			"dt": matDepthName(m.Depth), "data": ints,
		}, nil
	case KindVectorRect:
		rects := v.raw.([]Rect)
		out := make([]interface{}, len(rects))
		for i, r := range rects {
			out[i] = map[string]interface{}{"rect": map[string]interface{}{"x": r.X, "y": r.Y, "w": r.W, "h": r.H}}
		}
		return out, nil
	case KindVectorLandmark:
		lms := v.raw.([]Landmark)
		out := make([]interface{}, len(lms))
		for i, lm := range lms {
			pts := make([]map[string]interface{}, 5)
			for j, p := range lm.Points {
				pts[j] = map[string]interface{}{"x": p.X, "y": p.Y}
			}
			out[i] = map[string]interface{}{"face_landmark": map[string]interface{}{"points": pts}}
		}
		return out, nil
	case KindVectorFrame:
		nested := v.raw.([]*Frame)
		out := make([]json.RawMessage, len(nested))
		for i, n := range nested {
			raw, err := n.ToJSON()
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return out, nil
	default:
		return v.raw, nil
	}
}

func decodeValue(wf wireField) (value, error) {
	switch wf.Kind {
	case KindInt32.String():
		return numeric(wf, KindInt32, func(f float64) interface{} { return int32(f) })
	case KindUint32.String():
		return numeric(wf, KindUint32, func(f float64) interface{} { return uint32(f) })
	case KindInt64.String():
		return numeric(wf, KindInt64, func(f float64) interface{} { return int64(f) })
	case KindUint64.String():
		return numeric(wf, KindUint64, func(f float64) interface{} { return uint64(f) })
	case KindFloat32.String():
		return numeric(wf, KindFloat32, func(f float64) interface{} { return float32(f) })
	case KindFloat64.String():
		return numeric(wf, KindFloat64, func(f float64) interface{} { return f })
	case KindBool.String():
		b, ok := wf.Value.(bool)
		if !ok {
			return value{}, fmt.Errorf("expected bool")
		}
		return value{kind: KindBool, raw: b}, nil
	case KindString.String():
		s, ok := wf.Value.(string)
		if !ok {
			return value{}, fmt.Errorf("expected string")
		}
		return value{kind: KindString, raw: s}, nil
	case KindTime.String():
		s, ok := wf.Value.(string)
		if !ok {
			return value{}, fmt.Errorf("expected time string")
		}
		t, err := time.Parse(timeLayout, s)
		if err != nil {
			return value{}, err
		}
		return value{kind: KindTime, raw: t}, nil
	case KindDuration.String():
		f, ok := wf.Value.(float64)
		if !ok {
			return value{}, fmt.Errorf("expected duration nanoseconds")
		}
		return value{kind: KindDuration, raw: time.Duration(int64(f))}, nil
	case KindBytes.String():
		b, err := decodeByteArray(wf.Value)
		return value{kind: KindBytes, raw: b}, err
	case KindMat.String():
		m, ok := wf.Value.(map[string]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected mat object")
		}
		mat := Mat{
			Rows:     int32(m["rows"].(float64)),
			Cols:     int32(m["cols"].(float64)),
			Channels: int32(m["channels"].(float64)),
			Depth:    matDepthFromName(m["dt"].(string)),
		}
		data, err := decodeByteArray(m["data"])
		if err != nil {
			return value{}, err
		}
		mat.Data = data
		return value{kind: KindMat, raw: mat}, nil
	case KindVectorString.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		out := make([]string, len(arr))
		for i, e := range arr {
			out[i], _ = e.(string)
		}
		return value{kind: KindVectorString, raw: out}, nil
	case KindVectorFloat.String(), KindVectorDouble.String(), KindVectorInt.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		switch wf.Kind {
		case KindVectorFloat.String():
			out := make([]float32, len(arr))
			for i, e := range arr {
				out[i] = float32(e.(float64))
			}
			return value{kind: KindVectorFloat, raw: out}, nil
		case KindVectorDouble.String():
			out := make([]float64, len(arr))
			for i, e := range arr {
				out[i] = e.(float64)
			}
			return value{kind: KindVectorDouble, raw: out}, nil
		default:
			out := make([]int, len(arr))
			for i, e := range arr {
				out[i] = int(e.(float64))
			}
			return value{kind: KindVectorInt, raw: out}, nil
		}
	case KindVectorRect.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		out := make([]Rect, len(arr))
		for i, e := range arr {
			obj := e.(map[string]interface{})["rect"].(map[string]interface{})
			out[i] = Rect{
				X: int32(obj["x"].(float64)), Y: int32(obj["y"].(float64)),
				W: int32(obj["w"].(float64)), H: int32(obj["h"].(float64)),
			}
		}
		return value{kind: KindVectorRect, raw: out}, nil
	case KindVectorLandmark.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		out := make([]Landmark, len(arr))
		for i, e := range arr {
			obj := e.(map[string]interface{})["face_landmark"].(map[string]interface{})
			pts := obj["points"].([]interface{})
			var lm Landmark
			for j, p := range pts {
				po := p.(map[string]interface{})
				lm.Points[j] = Point{X: int32(po["x"].(float64)), Y: int32(po["y"].(float64))}
			}
			out[i] = lm
		}
		return value{kind: KindVectorLandmark, raw: out}, nil
	case KindVectorFeature.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		out := make([][]float32, len(arr))
		for i, e := range arr {
			inner := e.([]interface{})
			feat := make([]float32, len(inner))
			for j, x := range inner {
				feat[j] = float32(x.(float64))
			}
			out[i] = feat
		}
		return value{kind: KindVectorFeature, raw: out}, nil
	case KindVectorFrame.String():
		arr, ok := wf.Value.([]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected array")
		}
		out := make([]*Frame, len(arr))
		for i, e := range arr {
			raw, err := json.Marshal(e)
			if err != nil {
				return value{}, err
			}
			nested, err := FromJSON(raw)
			if err != nil {
				return value{}, err
			}
			out[i] = nested
		}
		return value{kind: KindVectorFrame, raw: out}, nil
	case KindDictIntFloat.String():
		m, ok := wf.Value.(map[string]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected object")
		}
		out := make(map[int]float64, len(m))
		for k, v := range m {
			var ik int
			fmt.Sscanf(k, "%d", &ik)
			out[ik] = v.(float64)
		}
		return value{kind: KindDictIntFloat, raw: out}, nil
	case KindDictIntBool.String():
		m, ok := wf.Value.(map[string]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected object")
		}
		out := make(map[int]bool, len(m))
		for k, v := range m {
			var ik int
			fmt.Sscanf(k, "%d", &ik)
			out[ik] = v.(bool)
		}
		return value{kind: KindDictIntBool, raw: out}, nil
	case KindDictU64Int.String():
		m, ok := wf.Value.(map[string]interface{})
		if !ok {
			return value{}, fmt.Errorf("expected object")
		}
		out := make(map[uint64]int64, len(m))
		for k, v := range m {
			var uk uint64
			fmt.Sscanf(k, "%d", &uk)
			out[uk] = int64(v.(float64))
		}
		return value{kind: KindDictU64Int, raw: out}, nil
	default:
		return value{}, fmt.Errorf("unknown field kind %q", wf.Kind)
	}
}

func numeric(wf wireField, kind Kind, conv func(float64) interface{}) (value, error) {
	f, ok := wf.Value.(float64)
	if !ok {
		return value{}, fmt.Errorf("expected number for kind %s", kind)
	}
	return value{kind: kind, raw: conv(f)}, nil
}

func decodeByteArray(raw interface{}) ([]byte, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected byte array")
	}
	out := make([]byte, len(arr))
	for i, e := range arr {
		out[i] = byte(e.(float64))
	}
	return out, nil
}

func matDepthName(d MatDepth) string {
	if d == MatDepthFloat32 {
		return "32F"
	}
	return "8U"
}

func matDepthFromName(s string) MatDepth {
	if s == "32F" {
		return MatDepthFloat32
	}
	return MatDepthUint8
}
