// Package nne implements the NeuralNetEvaluator operator of §4.6:
// batches up to N frames, runs a model on a named input layer, and
// attaches each requested output layer's activation tensor as a frame
// field. The model itself is a pluggable Model interface — a trivial
// in-process stand-in is provided for tests and small deployments, and
// operators/plugin's exec'd-process bridge lets a real deployment run
// the actual DNN framework out of process without this module taking a
// cgo dependency on it, per §1's Non-goals.
package nne

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
	"github.com/saf-project/saf/operators/plugin"
	"github.com/saf-project/saf/runtime"
)

// Model evaluates a batch of input tensors for the named output layers.
// Inputs and outputs are keyed by frame index within the batch.
type Model interface {
	// Evaluate runs the model on inputLayer for each of the given raw
	// input payloads, returning one map of outputLayer -> activation
	// bytes per input, in the same order.
	Evaluate(inputLayer string, inputs [][]byte, outputLayers []string) ([]map[string][]byte, error)
}

// StubModel is a trivial in-process Model used when no external plugin
// is configured: it echoes the input bytes back under every requested
// output layer name, which is enough to exercise the batching and
// field-attachment machinery end to end without a real DNN framework.
type StubModel struct{}

func (StubModel) Evaluate(inputLayer string, inputs [][]byte, outputLayers []string) ([]map[string][]byte, error) {
	out := make([]map[string][]byte, len(inputs))
	for i, in := range inputs {
		layers := map[string][]byte{}
		for _, l := range outputLayers {
			layers[l] = in
		}
		out[i] = layers
	}
	return out, nil
}

// PluginModel evaluates by round-tripping each input of a batch, one
// Call per input, through an operators/plugin.Client running an external
// model process.
type PluginModel struct {
	Client  *plugin.Client
	Timeout time.Duration
}

func (m *PluginModel) Evaluate(inputLayer string, inputs [][]byte, outputLayers []string) ([]map[string][]byte, error) {
	out := make([]map[string][]byte, len(inputs))
	for i, in := range inputs {
		resp, err := m.Client.Call(&plugin.Request{Method: inputLayer, Payload: in}, m.Timeout)
		if err != nil {
			return nil, err
		}
		if resp.Err != "" {
			return nil, errs.NewRuntimeError("nne: plugin model: %s", resp.Err)
		}
		layers := map[string][]byte{}
		for _, l := range outputLayers {
			layers[l] = resp.Payload
		}
		out[i] = layers
	}
	return out, nil
}

// Body implements operator.Body for NeuralNetEvaluator.
type Body struct {
	Model        Model
	BatchSize    int
	InputLayer   string
	OutputLayers []string
	InputField   string

	batch  []*frame.Frame
	logger *log.Logger
}

func (b *Body) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.BatchSize <= 0 {
		b.BatchSize = 1
	}
	if b.InputField == "" {
		b.InputField = "original_bytes"
	}
	if b.Model == nil {
		b.Model = StubModel{}
	}
	return nil
}

// Process accumulates frames until BatchSize is reached (or a stop frame
// arrives, which flushes early), then calls Model.Evaluate once for the
// whole batch and attaches each output layer's activation to its frame.
func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}

	if f.IsStopFrame() {
		if err := b.flush(op); err != nil {
			return err
		}
		return op.PushFrame("output", f)
	}

	b.batch = append(b.batch, f)
	if len(b.batch) < b.BatchSize {
		return nil
	}
	return b.flush(op)
}

func (b *Body) flush(op *operator.Base) error {
	if len(b.batch) == 0 {
		return nil
	}
	inputs := make([][]byte, len(b.batch))
	for i, f := range b.batch {
		raw, err := frame.Get[[]byte](f, b.InputField)
		if err != nil {
			inputs[i] = nil
			continue
		}
		inputs[i] = raw
	}

	results, err := b.Model.Evaluate(b.InputLayer, inputs, b.OutputLayers)
	if err != nil {
		b.logger.Error("nne: evaluate failed", "err", err)
		batch := b.batch
		b.batch = nil
		for _, f := range batch {
			if f.HasToken() {
				f.Release()
			}
		}
		return errs.NewRuntimeError("nne: evaluate: %v", err)
	}

	batch := b.batch
	b.batch = nil
	for i, f := range batch {
		for layer, activation := range results[i] {
			frame.Set(f, layer, activation)
		}
		if err := op.PushFrame("output", f); err != nil {
			return err
		}
	}
	return nil
}

func (b *Body) OnStop() {}

func paramString(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// NewBodyFromModelDescriptor constructs a Body configured from a
// runtime.ModelDescriptor loaded via the ModelManager.
func NewBodyFromModelDescriptor(d runtime.ModelDescriptor, batchSize int, model Model) *Body {
	return &Body{
		Model:        model,
		BatchSize:    batchSize,
		InputLayer:   d.DefaultInputLayer,
		OutputLayers: []string{d.DefaultOutputLayer},
	}
}

func init() {
	operator.Register("NeuralNetEvaluator", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{
			InputLayer:   paramString(params, "input_layer", "input"),
			OutputLayers: []string{paramString(params, "output_layer", "output")},
		}
		return operator.NewBase(name, "NeuralNetEvaluator", []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}
