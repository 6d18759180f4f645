package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/saf-project/saf/errs"
)

// Field numbers for the hand-rolled protobuf wire encoding. There is no
// .proto source in this repo — these constants are the single source of
// truth for both Marshal and Unmarshal, the same role a generated
// .pb.go's field accessors would otherwise play.
const (
	fnBBoxX = 1
	fnBBoxY = 2
	fnBBoxW = 3
	fnBBoxH = 4

	fnRectBBox    = 1
	fnRectLabel   = 2
	fnRectID      = 3
	fnRectFeature = 4

	fnThumbImage   = 1
	fnThumbLabel   = 2
	fnThumbID      = 3
	fnThumbFeature = 4

	fnFrameStreamID  = 1
	fnFrameFrameID   = 2
	fnFrameCaptureAt = 3
	fnFrameImage     = 4
	fnFrameRectInfos = 5

	fnDetStreamID    = 1
	fnDetFrameID     = 2
	fnDetCaptureAt   = 3
	fnDetThumbnails  = 4
)

func appendVarintInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(uint32(v)))
}

func appendVarintInt64(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendVarintUint64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	var payload []byte
	for _, v := range vs {
		payload = protowire.AppendFixed64(payload, doubleBits(v))
	}
	return protowire.AppendBytes(b, payload)
}

func marshalRect(r RectInfo) []byte {
	var bbox []byte
	bbox = appendVarintInt32(bbox, fnBBoxX, r.X)
	bbox = appendVarintInt32(bbox, fnBBoxY, r.Y)
	bbox = appendVarintInt32(bbox, fnBBoxW, r.W)
	bbox = appendVarintInt32(bbox, fnBBoxH, r.H)

	var b []byte
	b = appendMessage(b, fnRectBBox, bbox)
	b = appendString(b, fnRectLabel, r.Label)
	if r.HasID {
		b = appendVarintInt64(b, fnRectID, r.ID)
	}
	b = appendPackedDoubles(b, fnRectFeature, r.Feature)
	return b
}

func marshalThumbnail(t Thumbnail) []byte {
	var b []byte
	b = appendBytes(b, fnThumbImage, t.Image)
	b = appendString(b, fnThumbLabel, t.Label)
	if t.HasID {
		b = appendVarintInt64(b, fnThumbID, t.ID)
	}
	b = appendPackedDoubles(b, fnThumbFeature, t.Feature)
	return b
}

// Marshal encodes f as the protobuf-wire-compatible FrameProto message of
// §6.
func (f *FrameProto) Marshal() []byte {
	var b []byte
	b = appendString(b, fnFrameStreamID, f.StreamID)
	b = appendVarintUint64(b, fnFrameFrameID, f.FrameID)
	b = appendString(b, fnFrameCaptureAt, f.CaptureTimeMicros)
	b = appendBytes(b, fnFrameImage, f.Image)
	for _, r := range f.RectInfos {
		b = appendMessage(b, fnFrameRectInfos, marshalRect(r))
	}
	return b
}

// Marshal encodes d as the protobuf-wire-compatible DetectionProto
// message of §6.
func (d *DetectionProto) Marshal() []byte {
	var b []byte
	b = appendString(b, fnDetStreamID, d.StreamID)
	b = appendVarintUint64(b, fnDetFrameID, d.FrameID)
	b = appendString(b, fnDetCaptureAt, d.CaptureTimeMicros)
	for _, t := range d.Thumbnails {
		b = appendMessage(b, fnDetThumbnails, marshalThumbnail(t))
	}
	return b
}

func unmarshalRect(data []byte) (RectInfo, error) {
	var r RectInfo
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, errs.NewRuntimeError("wire: malformed rect_info tag")
		}
		data = data[n:]
		switch num {
		case fnRectBBox:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errs.NewRuntimeError("wire: malformed bbox")
			}
			data = data[n:]
			if err := unmarshalBBox(payload, &r); err != nil {
				return r, err
			}
		case fnRectLabel:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return r, errs.NewRuntimeError("wire: malformed label")
			}
			r.Label = v
			data = data[n:]
		case fnRectID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, errs.NewRuntimeError("wire: malformed id")
			}
			r.ID = int64(v)
			r.HasID = true
			data = data[n:]
		case fnRectFeature:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errs.NewRuntimeError("wire: malformed feature")
			}
			data = data[n:]
			r.Feature = decodePackedDoubles(payload)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, errs.NewRuntimeError("wire: malformed unknown field")
			}
			data = data[n:]
		}
	}
	return r, nil
}

func unmarshalBBox(data []byte, r *RectInfo) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errs.NewRuntimeError("wire: malformed bbox tag")
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return errs.NewRuntimeError("wire: malformed bbox field")
		}
		data = data[n:]
		switch num {
		case fnBBoxX:
			r.X = int32(uint32(v))
		case fnBBoxY:
			r.Y = int32(uint32(v))
		case fnBBoxW:
			r.W = int32(uint32(v))
		case fnBBoxH:
			r.H = int32(uint32(v))
		default:
			_ = typ
		}
	}
	return nil
}

func unmarshalThumbnail(data []byte) (Thumbnail, error) {
	var t Thumbnail
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return t, errs.NewRuntimeError("wire: malformed thumbnail tag")
		}
		data = data[n:]
		switch num {
		case fnThumbImage:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, errs.NewRuntimeError("wire: malformed image")
			}
			t.Image = append([]byte(nil), v...)
			data = data[n:]
		case fnThumbLabel:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return t, errs.NewRuntimeError("wire: malformed label")
			}
			t.Label = v
			data = data[n:]
		case fnThumbID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, errs.NewRuntimeError("wire: malformed id")
			}
			t.ID = int64(v)
			t.HasID = true
			data = data[n:]
		case fnThumbFeature:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, errs.NewRuntimeError("wire: malformed feature")
			}
			data = data[n:]
			t.Feature = decodePackedDoubles(payload)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return t, errs.NewRuntimeError("wire: malformed unknown field")
			}
			data = data[n:]
		}
	}
	return t, nil
}

// UnmarshalFrameProto decodes a FrameProto from its protobuf-wire
// encoding.
func UnmarshalFrameProto(data []byte) (*FrameProto, error) {
	f := &FrameProto{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errs.NewRuntimeError("wire: malformed FrameProto tag")
		}
		data = data[n:]
		switch num {
		case fnFrameStreamID:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed stream_id")
			}
			f.StreamID = v
			data = data[n:]
		case fnFrameFrameID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed frame_id")
			}
			f.FrameID = v
			data = data[n:]
		case fnFrameCaptureAt:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed capture_time_micros")
			}
			f.CaptureTimeMicros = v
			data = data[n:]
		case fnFrameImage:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed image")
			}
			f.Image = append([]byte(nil), v...)
			data = data[n:]
		case fnFrameRectInfos:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed rect_infos")
			}
			data = data[n:]
			r, err := unmarshalRect(payload)
			if err != nil {
				return nil, err
			}
			f.RectInfos = append(f.RectInfos, r)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed unknown field")
			}
			data = data[n:]
		}
	}
	return f, nil
}

// UnmarshalDetectionProto decodes a DetectionProto from its protobuf-wire
// encoding.
func UnmarshalDetectionProto(data []byte) (*DetectionProto, error) {
	d := &DetectionProto{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errs.NewRuntimeError("wire: malformed DetectionProto tag")
		}
		data = data[n:]
		switch num {
		case fnDetStreamID:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed stream_id")
			}
			d.StreamID = v
			data = data[n:]
		case fnDetFrameID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed frame_id")
			}
			d.FrameID = v
			data = data[n:]
		case fnDetCaptureAt:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed capture_time_micros")
			}
			d.CaptureTimeMicros = v
			data = data[n:]
		case fnDetThumbnails:
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed thumbnails")
			}
			data = data[n:]
			t, err := unmarshalThumbnail(payload)
			if err != nil {
				return nil, err
			}
			d.Thumbnails = append(d.Thumbnails, t)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, errs.NewRuntimeError("wire: malformed unknown field")
			}
			data = data[n:]
		}
	}
	return d, nil
}
