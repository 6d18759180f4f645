package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/saf-project/saf/errs"
)

// ToCBOR encodes f with CBOR, a self-describing alternative to the
// protobuf wire format (§6) and the same codec server/cborplugin/client.go
// uses for its request/response envelopes. The transports in
// operators/transport send the protobuf encoding, not this one.
func (f *FrameProto) ToCBOR() ([]byte, error) {
	b, err := cbor.Marshal(f)
	if err != nil {
		return nil, errs.NewRuntimeError("wire: cbor encode FrameProto: %v", err)
	}
	return b, nil
}

// FrameProtoFromCBOR decodes a FrameProto previously encoded with ToCBOR.
func FrameProtoFromCBOR(data []byte) (*FrameProto, error) {
	var f FrameProto
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, errs.NewRuntimeError("wire: cbor decode FrameProto: %v", err)
	}
	return &f, nil
}

// ToCBOR encodes d with CBOR.
func (d *DetectionProto) ToCBOR() ([]byte, error) {
	b, err := cbor.Marshal(d)
	if err != nil {
		return nil, errs.NewRuntimeError("wire: cbor encode DetectionProto: %v", err)
	}
	return b, nil
}

// DetectionProtoFromCBOR decodes a DetectionProto previously encoded with
// ToCBOR.
func DetectionProtoFromCBOR(data []byte) (*DetectionProto, error) {
	var d DetectionProto
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, errs.NewRuntimeError("wire: cbor decode DetectionProto: %v", err)
	}
	return &d, nil
}
