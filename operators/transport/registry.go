package transport

import (
	"context"
	"crypto/tls"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/operator"
)

func paramString(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func buildSenderTransport(params map[string]interface{}) (Transport, error) {
	addr := paramString(params, "address", "")
	switch paramString(params, "variant", "quic") {
	case "websocket":
		return DialWebsocketSender(addr, paramString(params, "origin", "http://localhost"))
	case "rpc":
		return NewRPCSender(addr), nil
	case "quic":
		return DialQUICSender(context.Background(), addr, &tls.Config{InsecureSkipVerify: true})
	default:
		return nil, errs.NewConfigError("transport: unknown variant")
	}
}

func buildReceiverTransport(params map[string]interface{}) (Transport, error) {
	addr := paramString(params, "address", "")
	switch paramString(params, "variant", "quic") {
	case "quic":
		return ListenQUICReceiver(context.Background(), addr, generateSelfSignedTLSConfig())
	default:
		return nil, errs.NewConfigError("transport: receiver variant %q requires app-level wiring (see NewRPCReceiver/NewWebsocketReceiver)", paramString(params, "variant", ""))
	}
}

// generateSelfSignedTLSConfig exists so ListenQUICReceiver has something
// to pass when no certificate is configured; the reference CLI apps
// supply a real certificate via Context in production use.
func generateSelfSignedTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}

func init() {
	operator.Register("Sender", func(name string, params map[string]interface{}) (operator.Operator, error) {
		t, err := buildSenderTransport(params)
		if err != nil {
			return nil, err
		}
		body := &SenderBody{Transport: t, CameraName: paramString(params, "camera_name", "")}
		return operator.NewBase(name, "Sender", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
	operator.Register("Receiver", func(name string, params map[string]interface{}) (operator.Operator, error) {
		t, err := buildReceiverTransport(params)
		if err != nil {
			return nil, err
		}
		body := &ReceiverBody{Transport: t}
		return operator.NewBase(name, "Receiver", nil, []string{"output"}, body, log.Default()), nil
	})
	operator.Register("FramePublisher", func(name string, params map[string]interface{}) (operator.Operator, error) {
		t, err := buildSenderTransport(params)
		if err != nil {
			return nil, err
		}
		body := &SenderBody{Transport: t, CameraName: paramString(params, "camera_name", "")}
		return operator.NewBase(name, "FramePublisher", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
	operator.Register("FrameSubscriber", func(name string, params map[string]interface{}) (operator.Operator, error) {
		t, err := buildReceiverTransport(params)
		if err != nil {
			return nil, err
		}
		body := &ReceiverBody{Transport: t}
		return operator.NewBase(name, "FrameSubscriber", nil, []string{"output"}, body, log.Default()), nil
	})
}
