// Package wire implements the network envelope formats of §6: FrameProto
// and DetectionProto encoded with google.golang.org/protobuf's low-level
// protowire primitives rather than a protoc-generated .pb.go (no code
// generation runs in this build), which is the encoding Sender/Receiver
// use on every transport; and a CBOR encoding of the same structs, using
// the same fxamacker/cbor library the plugin bridge in
// server/cborplugin/client.go depends on, which no transport in this
// module uses.
package wire

// RectInfo describes one detected region and, optionally, its track
// identity and feature embedding.
type RectInfo struct {
	X       int32     `cbor:"x"`
	Y       int32     `cbor:"y"`
	W       int32     `cbor:"w"`
	H       int32     `cbor:"h"`
	Label   string    `cbor:"label,omitempty"`
	HasID   bool      `cbor:"-"`
	ID      int64     `cbor:"id,omitempty"`
	Feature []float64 `cbor:"feature,omitempty"`
}

// Thumbnail carries a cropped, JPEG-encoded detection image alongside
// the same identity metadata as RectInfo.
type Thumbnail struct {
	Image   []byte    `cbor:"image"`
	Label   string    `cbor:"label,omitempty"`
	HasID   bool      `cbor:"-"`
	ID      int64     `cbor:"id,omitempty"`
	Feature []float64 `cbor:"feature,omitempty"`
}

// FrameProto is the wire message a Sender emits per published frame.
type FrameProto struct {
	StreamID          string     `cbor:"stream_id"`
	FrameID           uint64     `cbor:"frame_id"`
	CaptureTimeMicros string     `cbor:"capture_time_micros"`
	Image             []byte     `cbor:"image"`
	RectInfos         []RectInfo `cbor:"rect_infos,omitempty"`
}

// DetectionProto is the wire message emitted when individual detections
// (rather than the whole frame image) are the payload of interest.
type DetectionProto struct {
	StreamID          string      `cbor:"stream_id"`
	FrameID           uint64      `cbor:"frame_id"`
	CaptureTimeMicros string      `cbor:"capture_time_micros"`
	Thumbnails        []Thumbnail `cbor:"thumbnails,omitempty"`
}
