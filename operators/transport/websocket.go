package transport

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/saf-project/saf/errs"
)

// WebsocketSender is the Websocket Transport variant of §6: every Send
// writes one binary Websocket frame carrying the sealed envelope.
type WebsocketSender struct {
	conn *websocket.Conn
}

// DialWebsocketSender dials a Websocket server at url, sending origin as
// the Origin header golang.org/x/net/websocket requires.
func DialWebsocketSender(url, origin string) (*WebsocketSender, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, errs.NewRuntimeError("transport: websocket dial %s: %v", url, err)
	}
	return &WebsocketSender{conn: conn}, nil
}

func (s *WebsocketSender) Send(topic string, envelope []byte) error {
	if err := websocket.Message.Send(s.conn, envelope); err != nil {
		return errs.NewRuntimeError("transport: websocket send: %v", err)
	}
	return nil
}

func (s *WebsocketSender) Recv() (string, []byte, error) {
	return "", nil, errs.NewRuntimeError("transport: websocket sender does not receive")
}

func (s *WebsocketSender) Close() error { return s.conn.Close() }

// WebsocketReceiver wraps a single accepted server-side Websocket
// connection. Server wiring (http.Handle with websocket.Handler) is the
// reference CLI apps' responsibility; this type is handed the accepted
// *websocket.Conn once the handshake completes.
type WebsocketReceiver struct {
	conn *websocket.Conn
}

func NewWebsocketReceiver(conn *websocket.Conn) *WebsocketReceiver {
	return &WebsocketReceiver{conn: conn}
}

// Handler returns an http.Handler that calls onAccept for every
// Websocket connection it accepts; each connection is closed when its
// onAccept call returns.
func Handler(onAccept func(*websocket.Conn)) http.Handler {
	return websocket.Handler(onAccept)
}

func (r *WebsocketReceiver) Send(topic string, envelope []byte) error {
	return errs.NewRuntimeError("transport: websocket receiver does not send")
}

func (r *WebsocketReceiver) Recv() (string, []byte, error) {
	var data []byte
	if err := websocket.Message.Receive(r.conn, &data); err != nil {
		return "", nil, errs.NewRuntimeError("transport: websocket recv: %v", err)
	}
	return "", data, nil
}

func (r *WebsocketReceiver) Close() error { return r.conn.Close() }
