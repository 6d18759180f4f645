package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"io"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/saf-project/saf/errs"
)

// QUICSender is the QUIC-backed Transport variant of §6's Sender/Receiver
// transports, grounded on sockatz/common/conn.go's QUICProxyConn: every
// Send opens a fresh stream on a long-lived QUIC connection and writes a
// length-prefixed envelope.
type QUICSender struct {
	conn quic.Connection
}

// DialQUICSender dials addr and returns a Sender-side Transport. tlsConf
// must not be nil; QUIC requires TLS.
func DialQUICSender(ctx context.Context, addr string, tlsConf *tls.Config) (*QUICSender, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, errs.NewRuntimeError("transport: quic dial %s: %v", addr, err)
	}
	return &QUICSender{conn: conn}, nil
}

func (s *QUICSender) Send(topic string, envelope []byte) error {
	stream, err := s.conn.OpenStreamSync(context.Background())
	if err != nil {
		return errs.NewRuntimeError("transport: quic open stream: %v", err)
	}
	defer stream.Close()
	return writeLengthPrefixed(stream, envelope)
}

func (s *QUICSender) Recv() (string, []byte, error) {
	return "", nil, errs.NewRuntimeError("transport: quic sender does not receive")
}

func (s *QUICSender) Close() error {
	return s.conn.CloseWithError(0, "done")
}

// QUICReceiver accepts incoming QUIC connections and streams, returning
// each stream's length-prefixed payload as a Recv result.
type QUICReceiver struct {
	listener *quic.Listener
	conn     quic.Connection
}

// ListenQUICReceiver listens on addr for a single peer connection.
func ListenQUICReceiver(ctx context.Context, addr string, tlsConf *tls.Config) (*QUICReceiver, error) {
	l, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, errs.NewRuntimeError("transport: quic listen %s: %v", addr, err)
	}
	conn, err := l.Accept(ctx)
	if err != nil {
		return nil, errs.NewRuntimeError("transport: quic accept: %v", err)
	}
	return &QUICReceiver{listener: l, conn: conn}, nil
}

func (r *QUICReceiver) Send(topic string, envelope []byte) error {
	return errs.NewRuntimeError("transport: quic receiver does not send")
}

func (r *QUICReceiver) Recv() (string, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stream, err := r.conn.AcceptStream(ctx)
	if err != nil {
		return "", nil, errs.NewRuntimeError("transport: quic accept stream: %v", err)
	}
	defer stream.Close()
	envelope, err := readLengthPrefixed(stream)
	if err != nil {
		return "", nil, err
	}
	return "", envelope, nil
}

func (r *QUICReceiver) Close() error {
	return r.listener.Close()
}

func writeLengthPrefixed(w io.Writer, data []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errs.NewRuntimeError("transport: write length: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		return errs.NewRuntimeError("transport: write payload: %v", err)
	}
	return nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errs.NewRuntimeError("transport: read length: %v", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errs.NewRuntimeError("transport: read payload: %v", err)
	}
	return data, nil
}
