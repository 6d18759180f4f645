package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	gorillarpc "github.com/gorilla/rpc"
	gorillajson "github.com/gorilla/rpc/json"

	"github.com/saf-project/saf/errs"
)

// RPCReceiver is the RPC Transport variant of §6, matching the original
// `apps/rpc/rpc_receiver.cpp`: a gorilla/rpc JSON-RPC service exposing a
// single Deliver method, fed by RPCSender's client below, grounded on
// talek/frontend/main.go's gorilla/rpc + gorilla/rpc/json registration.
type RPCReceiver struct {
	server *gorillarpc.Server
	frames chan []byte
}

// FrameService is the gorilla/rpc service RPCReceiver registers.
type FrameService struct {
	frames chan []byte
}

// DeliverArgs is the JSON-RPC argument envelope for FrameService.Deliver.
type DeliverArgs struct {
	Envelope []byte
}

// DeliverReply is the JSON-RPC reply for FrameService.Deliver.
type DeliverReply struct {
	OK bool
}

// Deliver is the RPC method Sender's client calls once per frame.
func (s *FrameService) Deliver(r *http.Request, args *DeliverArgs, reply *DeliverReply) error {
	s.frames <- args.Envelope
	reply.OK = true
	return nil
}

// NewRPCReceiver builds a gorilla/rpc server exposing FrameService and
// returns both the receiver and the http.Handler it must be mounted
// under (the reference CLI app owns the http.Server/ServeMux).
func NewRPCReceiver() (*RPCReceiver, http.Handler, error) {
	frames := make(chan []byte, 64)
	server := gorillarpc.NewServer()
	server.RegisterCodec(gorillajson.NewCodec(), "application/json")
	if err := server.RegisterService(&FrameService{frames: frames}, "FrameService"); err != nil {
		return nil, nil, errs.NewRuntimeError("transport: rpc register service: %v", err)
	}
	return &RPCReceiver{server: server, frames: frames}, server, nil
}

func (r *RPCReceiver) Send(topic string, envelope []byte) error {
	return errs.NewRuntimeError("transport: rpc receiver does not send")
}

func (r *RPCReceiver) Recv() (string, []byte, error) {
	envelope, ok := <-r.frames
	if !ok {
		return "", nil, errs.NewRuntimeError("transport: rpc receiver closed")
	}
	return "", envelope, nil
}

func (r *RPCReceiver) Close() error {
	close(r.frames)
	return nil
}

// RPCSender is the client half: it POSTs a JSON-RPC 1.0 request invoking
// FrameService.Deliver for every Send.
type RPCSender struct {
	url    string
	client *http.Client
}

func NewRPCSender(url string) *RPCSender {
	return &RPCSender{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *RPCSender) Send(topic string, envelope []byte) error {
	body, err := encodeJSONRPCRequest("FrameService.Deliver", &DeliverArgs{Envelope: envelope})
	if err != nil {
		return errs.NewRuntimeError("transport: rpc encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errs.NewRuntimeError("transport: rpc build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return errs.NewRuntimeError("transport: rpc post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.NewRuntimeError("transport: rpc: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *RPCSender) Recv() (string, []byte, error) {
	return "", nil, errs.NewRuntimeError("transport: rpc sender does not receive")
}

func (s *RPCSender) Close() error { return nil }

type jsonRPCRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     uint64        `json:"id"`
}

func encodeJSONRPCRequest(method string, args interface{}) ([]byte, error) {
	return json.Marshal(jsonRPCRequest{Method: method, Params: []interface{}{args}, ID: 1})
}
