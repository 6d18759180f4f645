// Package pipeline implements the Pipeline orchestrator of §4.5: builds a
// named operator graph from a declarative Spec, starts it consumers-first
// (each consumer before the producers it reads from), stops it
// producers-first, and emits a
// Graphviz/DOT rendering of the transpose graph for diagnostics —
// mirroring the explicit, hand-wired dependency injection mailproxy does
// for its own subsystem graph (mailproxy/mailproxy.go), rather than any
// implicit reflection-based wiring.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/operator"
)

const defaultSinkName = "output"

// edge records that consumer's sourcePort is fed by producer's sinkPort.
type edge struct {
	producer, sinkPort string
	consumer, srcPort  string
}

// Pipeline is a named collection of operators and their wiring, built
// once from a Spec and then driven through Start/Stop.
type Pipeline struct {
	bufSize int
	logger  *log.Logger

	names     []string // construction order, stable iteration base
	operators map[string]operator.Operator
	edges     []edge

	// dependsOn[c] = producers that c reads from; topoOrder uses it to
	// place producers ahead of their consumers.
	dependsOn map[string][]string // consumer -> producers it reads from
}

// New constructs an empty Pipeline. bufSize is the default StreamReader
// queue depth used when subscribing operators to their sources.
func New(bufSize int, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Pipeline{
		bufSize:   bufSize,
		logger:    logger.With("component", "pipeline"),
		operators: make(map[string]operator.Operator),
		dependsOn: make(map[string][]string),
	}
}

func parseStreamID(id string) (producer, sink string) {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, defaultSinkName
}

// Build instantiates every operator in spec via the operator registry and
// wires each declared input to its producer's named sink. Unknown kinds
// or ports fail the whole build.
func (p *Pipeline) Build(spec Spec) error {
	for _, os := range spec.Operators {
		if _, exists := p.operators[os.Name]; exists {
			return errs.NewWiringError("duplicate operator name %q", os.Name)
		}
		params := make(map[string]interface{}, len(os.Parameters))
		for k, v := range os.Parameters {
			params[k] = v
		}
		op, err := operator.New(os.Type, os.Name, params)
		if err != nil {
			return err
		}
		p.operators[os.Name] = op
		p.names = append(p.names, os.Name)
	}

	for _, os := range spec.Operators {
		consumer := p.operators[os.Name]
		for srcPort, streamID := range os.Inputs {
			producerName, sinkPort := parseStreamID(streamID)
			producer, ok := p.operators[producerName]
			if !ok {
				return errs.NewWiringError("operator %q references unknown producer %q", os.Name, producerName)
			}
			s, err := producer.Sink(sinkPort)
			if err != nil {
				return errs.NewWiringError("operator %q: %v", os.Name, err)
			}
			if err := consumer.SetSource(srcPort, s); err != nil {
				return errs.NewWiringError("operator %q: %v", os.Name, err)
			}
			p.edges = append(p.edges, edge{producer: producerName, sinkPort: sinkPort, consumer: os.Name, srcPort: srcPort})
			p.dependsOn[os.Name] = append(p.dependsOn[os.Name], producerName)
		}
	}
	return nil
}

// Add registers an already-constructed operator directly, for callers
// building a pipeline programmatically instead of from a Spec. Wire must
// be called separately to connect its ports.
func (p *Pipeline) Add(op operator.Operator) {
	if _, exists := p.operators[op.Name()]; !exists {
		p.names = append(p.names, op.Name())
	}
	p.operators[op.Name()] = op
}

// Wire connects consumer's source port to producer's sink port, for
// programmatic pipeline construction (the Spec/Build path does this
// itself).
func (p *Pipeline) Wire(consumerName, srcPort, producerName, sinkPort string) error {
	producer, ok := p.operators[producerName]
	if !ok {
		return errs.NewWiringError("unknown producer %q", producerName)
	}
	consumer, ok := p.operators[consumerName]
	if !ok {
		return errs.NewWiringError("unknown consumer %q", consumerName)
	}
	s, err := producer.Sink(sinkPort)
	if err != nil {
		return errs.NewWiringError("%v", err)
	}
	if err := consumer.SetSource(srcPort, s); err != nil {
		return errs.NewWiringError("%v", err)
	}
	p.edges = append(p.edges, edge{producer: producerName, sinkPort: sinkPort, consumer: consumerName, srcPort: srcPort})
	p.dependsOn[consumerName] = append(p.dependsOn[consumerName], producerName)
	return nil
}

// topoOrder returns a deterministic topological order of operator names
// such that every name appears after all names in deps[name]. Returns an
// error if the dependency graph has a cycle.
func (p *Pipeline) topoOrder() ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(p.names))
	order := make([]string, 0, len(p.names))

	names := append([]string(nil), p.names...)
	sort.Strings(names)

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case black:
			return nil
		case gray:
			return errs.NewWiringError("cycle detected at operator %q", name)
		}
		state[name] = gray
		deps := append([]string(nil), p.dependsOn[name]...)
		sort.Strings(deps)
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Start computes a topological order over the producer→consumer
// dependency graph and starts operators leaves-first: a "leaf" here is a
// terminal consumer with nothing downstream of it, so consumers come up
// (and subscribe to their sources) before the producers that will feed
// them, and no frame is ever pushed into a not-yet-running reader. For a
// linear A→B→C pipeline this starts C, then B, then A. If any operator
// fails to start, the whole pipeline is stopped and false is returned.
func (p *Pipeline) Start() bool {
	order, err := p.topoOrder()
	if err != nil {
		p.logger.Error("cannot start: invalid graph", "err", err)
		return false
	}

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		op := p.operators[name]
		if !op.Start(p.bufSize) {
			p.logger.Error("operator failed to start, stopping pipeline", "operator", name)
			p.Stop()
			return false
		}
	}
	return true
}

// Stop stops every operator in the transpose order — producers first, so
// no new frames enter the pipeline while it drains, then each stage in
// turn until the terminal consumers stop last. For a linear A→B→C
// pipeline this stops A, then B, then C. Individual failures are logged
// but do not halt the sequence; the return value is the AND of every
// operator's Stop.
func (p *Pipeline) Stop() bool {
	order, err := p.topoOrder()
	if err != nil {
		// even a malformed graph should still attempt to stop whatever
		// was constructed, in registration order.
		order = append([]string(nil), p.names...)
	}

	ok := true
	for _, name := range order {
		op := p.operators[name]
		if !op.Stop() {
			p.logger.Error("operator failed to stop", "operator", name)
			ok = false
		}
	}
	return ok
}

// Operator returns the named operator, for introspection/testing.
func (p *Pipeline) Operator(name string) (operator.Operator, bool) {
	op, ok := p.operators[name]
	return op, ok
}

// GetGraph renders the transpose graph (consumer -> producer, i.e. "what
// do I depend on") as Graphviz/DOT.
func (p *Pipeline) GetGraph() string {
	var b strings.Builder
	b.WriteString("digraph pipeline {\n")
	names := append([]string(nil), p.names...)
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "  %q;\n", n)
	}
	edges := append([]edge(nil), p.edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].consumer != edges[j].consumer {
			return edges[i].consumer < edges[j].consumer
		}
		return edges[i].producer < edges[j].producer
	})
	for _, e := range edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.consumer, e.producer, e.srcPort+"<-"+e.sinkPort)
	}
	b.WriteString("}\n")
	return b.String()
}
