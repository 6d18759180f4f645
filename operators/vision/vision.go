// Package vision registers the machine-vision operator kinds named in
// §4.6 whose model algorithms are explicitly out of scope per §1's
// Non-goals (ImageClassifier, ImageSegmenter, ObjectDetector,
// ObjectTracker, ObjectMatcher, FeatureExtractor, Facenet, FaceTracker).
// Each is a real, registrable operator.Body so a pipeline JSON spec
// naming them still builds and runs end to end; Process attaches a
// deterministic placeholder result under the field the real model would
// populate, rather than performing any inference. A deployment wiring a
// genuine model swaps the Body for operators/nne's NeuralNetEvaluator,
// which is where the actual pluggable-model seam (including the
// out-of-process plugin bridge) lives.
package vision

import (
	"github.com/charmbracelet/log"

	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// Body passes its input through to its output, stamping resultField with
// a placeholder value so downstream stages have something to key off.
type Body struct {
	Kind        string
	ResultField string
	Placeholder interface{}
}

func (b *Body) Init() error { return nil }

func (b *Body) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if b.ResultField != "" {
		switch v := b.Placeholder.(type) {
		case string:
			frame.Set(f, b.ResultField, v)
		case float64:
			frame.Set(f, b.ResultField, v)
		case int32:
			frame.Set(f, b.ResultField, v)
		}
	}
	return op.PushFrame("output", f)
}

func (b *Body) OnStop() {}

func register(kind, resultField string, placeholder interface{}) {
	operator.Register(kind, func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &Body{Kind: kind, ResultField: resultField, Placeholder: placeholder}
		return operator.NewBase(name, kind, []string{"input"}, []string{"output"}, body, log.Default()), nil
	})
}

func init() {
	register("ImageClassifier", "class_label", "unknown")
	register("ImageSegmenter", "segment_mask", "")
	register("ObjectDetector", "detection_count", int32(0))
	register("ObjectTracker", "track_id", int32(-1))
	register("ObjectMatcher", "match_score", float64(0))
	register("FeatureExtractor", "feature_dim", int32(0))
	register("Facenet", "face_embedding_dim", int32(0))
	register("FaceTracker", "face_track_id", int32(-1))
}
