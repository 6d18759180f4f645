package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/config"
)

const camerasTOML = `
[[camera]]
name = "front_door"
video_uri = "rtsp://127.0.0.1/front"
width = 1920
height = 1080
buffer_size = 8
restart_on_eof = true
`

const modelsTOML = `
[[model]]
name = "yolo_tiny"
type = "detector"
files = ["yolo_tiny.onnx"]
input_shape = [1, 3, 416, 416]
default_input_layer = "input"
default_output_layer = "output"
label_file = "coco.names"
`

func TestLoadCamerasParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cameras.toml")
	require.NoError(t, os.WriteFile(path, []byte(camerasTOML), 0o644))

	cams, err := config.LoadCameras(path)
	require.NoError(t, err)
	require.Len(t, cams, 1)
	require.Equal(t, "front_door", cams[0].Name)
	require.Equal(t, 1920, cams[0].Width)
	require.True(t, cams[0].RestartOnEOF)
}

func TestLoadModelsParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.toml")
	require.NoError(t, os.WriteFile(path, []byte(modelsTOML), 0o644))

	models, err := config.LoadModels(path)
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.Equal(t, "yolo_tiny", models[0].Name)
	require.Equal(t, []int{1, 3, 416, 416}, models[0].InputShape)
}

func TestLoadCamerasMissingFileErrors(t *testing.T) {
	_, err := config.LoadCameras("/nonexistent/cameras.toml")
	require.Error(t, err)
}
