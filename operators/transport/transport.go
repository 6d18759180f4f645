package transport

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/wire"
)

// Transport is the minimal duplex byte-envelope carrier every concrete
// transport variant (QUIC, Websocket, RPC) implements. Sender/Receiver
// and FramePublisher/FrameSubscriber are written entirely against this
// interface so adding MQTT/Kafka later is a matter of a new
// implementation, not a change to the operator bodies.
type Transport interface {
	Send(topic string, envelope []byte) error
	Recv() (topic string, envelope []byte, err error)
	Close() error
}

// Topic formats the MQTT-style topic name a camera's frames publish
// under, kept even though no MQTT broker client is wired in this build
// (see DESIGN.md) so the naming convention still threads through.
func Topic(cameraName string) string {
	if cameraName == "" {
		return "saf"
	}
	return "saf/" + cameraName
}

// SenderBody implements the Sender operator: encodes each input frame as
// a FrameProto, optionally seals it, and hands it to a Transport.
type SenderBody struct {
	Transport  Transport
	Cipher     *Cipher
	CameraName string
	logger     *log.Logger
}

func (b *SenderBody) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	return nil
}

func (b *SenderBody) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return op.PushFrame("output", f)
	}

	fp := frameProtoFromFrame(f, b.CameraName)
	payload := fp.Marshal()
	if b.Cipher != nil {
		sealed, err := b.Cipher.Seal(payload)
		if err != nil {
			return errs.NewRuntimeError("transport: sender: %v", err)
		}
		payload = sealed
	}
	if err := b.Transport.Send(Topic(b.CameraName), payload); err != nil {
		b.logger.Error("transport: send failed", "err", err)
		return errs.NewRuntimeError("transport: sender: send: %v", err)
	}
	return op.PushFrame("output", f)
}

func (b *SenderBody) OnStop() {
	if b.Transport != nil {
		_ = b.Transport.Close()
	}
}

// ReceiverBody implements the Receiver operator: a source that blocks on
// Transport.Recv, decodes a FrameProto, and produces a Frame.
type ReceiverBody struct {
	Transport Transport
	Cipher    *Cipher
	logger    *log.Logger
}

func (b *ReceiverBody) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	return nil
}

func (b *ReceiverBody) Process(op *operator.Base) error {
	_, envelope, err := b.Transport.Recv()
	if err != nil {
		b.logger.Warn("transport: recv failed, stopping", "err", err)
		return op.PushFrame("output", frame.NewStopFrame())
	}

	payload := envelope
	if b.Cipher != nil {
		opened, err := b.Cipher.Open(envelope)
		if err != nil {
			b.logger.Warn("transport: dropping unauthenticated envelope", "err", err)
			return nil
		}
		payload = opened
	}

	fp, err := wire.UnmarshalFrameProto(payload)
	if err != nil {
		b.logger.Warn("transport: dropping malformed envelope", "err", err)
		return nil
	}
	return op.PushFrame("output", frameFromFrameProto(fp))
}

func (b *ReceiverBody) OnStop() {
	if b.Transport != nil {
		_ = b.Transport.Close()
	}
}

func frameProtoFromFrame(f *frame.Frame, cameraName string) *wire.FrameProto {
	fp := &wire.FrameProto{
		StreamID:          cameraName,
		FrameID:           f.FrameID(),
		CaptureTimeMicros: formatMicros(f.CaptureTime()),
	}
	if raw, err := frame.Get[[]byte](f, "original_bytes"); err == nil {
		fp.Image = raw
	}
	return fp
}

func frameFromFrameProto(fp *wire.FrameProto) *frame.Frame {
	f := frame.New()
	f.SetFrameID(fp.FrameID)
	if t, err := parseMicros(fp.CaptureTimeMicros); err == nil {
		f.SetCaptureTime(t)
	}
	if len(fp.Image) > 0 {
		frame.Set(f, "original_bytes", fp.Image)
	}
	frame.Set(f, "stream_id", fp.StreamID)
	return f
}

func formatMicros(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func parseMicros(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errs.NewRuntimeError("transport: empty capture time")
	}
	micros, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, errs.NewRuntimeError("transport: parse capture time: %v", err)
	}
	return time.UnixMicro(micros), nil
}
