package vision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/operator"
	_ "github.com/saf-project/saf/operators/vision"
)

func TestRegisteredVisionKindsPassFramesThrough(t *testing.T) {
	for _, kind := range []string{
		"ImageClassifier", "ImageSegmenter", "ObjectDetector", "ObjectTracker",
		"ObjectMatcher", "FeatureExtractor", "Facenet", "FaceTracker",
	} {
		op, err := operator.New(kind, "v", nil)
		require.NoError(t, err, kind)
		require.Equal(t, kind, op.Kind())
		require.Equal(t, []string{"input"}, op.SourceNames())
		require.Equal(t, []string{"output"}, op.SinkNames())
	}
}

func TestUnregisteredKindStillErrors(t *testing.T) {
	_, err := operator.New("NotARealKind", "v", nil)
	require.Error(t, err)
}
