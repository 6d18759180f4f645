package operator

import (
	"sync"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/stream"
)

// Operator is the common interface every derived operator kind satisfies,
// almost always by embedding *Base and adding nothing but a Body (§4.3,
// §4.6 "Derived Operator Catalog"). Pipeline wires operators together
// purely in terms of this interface, never a concrete kind.
type Operator interface {
	Name() string
	Kind() string
	SourceNames() []string
	SinkNames() []string
	SetSource(name string, s *stream.Stream) error
	Sink(name string) (*stream.Stream, error)
	Start(bufSize int) bool
	Stop() bool
	IsStarted() bool
	SetBlockOnPush(bool)
	Latency() LatencyStats
}

// Constructor builds a named Operator instance of a given kind from its
// JSON/TOML-decoded parameter bag (§6 "Build(spec)").
type Constructor func(name string, params map[string]interface{}) (Operator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register associates kind with a Constructor. Derived operator packages
// call this from an init() func so importing them for side effect makes
// their kind buildable from a pipeline spec. Re-registering a kind
// overwrites the previous constructor, which is useful for tests that
// stub a kind out.
func Register(kind string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = ctor
}

// New constructs an Operator of the given kind by name, per the
// registered Constructor. It returns an error if kind was never
// registered (§7 ConfigError: unknown operator kind in a spec).
func New(kind, name string, params map[string]interface{}) (Operator, error) {
	registryMu.RLock()
	ctor, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errs.NewConfigError("operator: unknown kind %q", kind)
	}
	return ctor(name, params)
}

// Kinds returns the currently registered operator kinds, for diagnostics.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
