// Package errs implements the closed error-kind taxonomy of §7: each kind
// is a concrete type wrapping an inner error, mirroring the
// ConnectError/PKIError/ProtocolError shape of client2/connection.go.
package errs

import "fmt"

// ConfigError indicates an unknown camera/model, an invalid enum string, or
// an out-of-range integer in a TOML or JSON configuration document.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return fmt.Sprintf("saf: config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps f/a as a ConfigError.
func NewConfigError(f string, a ...interface{}) error {
	return &ConfigError{Err: fmt.Errorf(f, a...)}
}

// WiringError indicates an unknown source/sink name, a typed-sink mismatch,
// or a cycle in the pipeline dependency graph.
type WiringError struct{ Err error }

func (e *WiringError) Error() string { return fmt.Sprintf("saf: wiring error: %v", e.Err) }
func (e *WiringError) Unwrap() error { return e.Err }

func NewWiringError(f string, a ...interface{}) error {
	return &WiringError{Err: fmt.Errorf(f, a...)}
}

// RuntimeError indicates an I/O, codec, or DNN-framework failure.
type RuntimeError struct{ Err error }

func (e *RuntimeError) Error() string { return fmt.Sprintf("saf: runtime error: %v", e.Err) }
func (e *RuntimeError) Unwrap() error { return e.Err }

func NewRuntimeError(f string, a ...interface{}) error {
	return &RuntimeError{Err: fmt.Errorf(f, a...)}
}

// KeyMissingError is returned by Frame.Get when the key is absent.
type KeyMissingError struct{ Key string }

func (e *KeyMissingError) Error() string { return fmt.Sprintf("saf: key missing: %q", e.Key) }

// TypeMismatchError is returned by Frame.Get when the stored variant does
// not hold the requested type.
type TypeMismatchError struct {
	Key       string
	Want      string
	Have      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("saf: type mismatch for key %q: want %s, have %s", e.Key, e.Want, e.Have)
}

// StoppedError indicates an operation attempted on a stopped stream or
// operator.
type StoppedError struct{ What string }

func (e *StoppedError) Error() string { return fmt.Sprintf("saf: %s is stopped", e.What) }

// DroppedError indicates a non-blocking stream dropped a frame. It is a
// warning-severity condition unless the frame carried a flow-control
// token, in which case Severe is true and the condition is a
// configuration/backpressure violation per §7.
type DroppedError struct {
	Reader string
	Severe bool
}

func (e *DroppedError) Error() string {
	if e.Severe {
		return fmt.Sprintf("saf: dropped token-bearing frame at reader %q (backpressure violation)", e.Reader)
	}
	return fmt.Sprintf("saf: dropped frame at reader %q (queue full)", e.Reader)
}

// UnknownPortError is returned by SetSource/Sink lookups that name a port
// the operator never declared.
type UnknownPortError struct {
	Operator, Port string
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("saf: operator %q has no port %q", e.Operator, e.Port)
}

// AlreadyStartedError is returned by a second call to Operator.Start.
type AlreadyStartedError struct{ Operator string }

func (e *AlreadyStartedError) Error() string {
	return fmt.Sprintf("saf: operator %q already started", e.Operator)
}
