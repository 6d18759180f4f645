package runtime_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/runtime"
)

const camerasTOML = `
[[camera]]
name = "front_door"
video_uri = "rtsp://example/front"
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

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cameras.toml"), []byte(camerasTOML), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.toml"), []byte(modelsTOML), 0600))
	return dir
}

func TestLoadParsesAndCachesDescriptors(t *testing.T) {
	dir := writeConfigDir(t)
	rt, err := runtime.Load(runtime.Options{ConfigDir: dir})
	require.NoError(t, err)
	defer rt.Close()

	cam, err := rt.CameraManager.Get("front_door")
	require.NoError(t, err)
	require.Equal(t, "rtsp://example/front", cam.VideoURI)
	require.Equal(t, 1920, cam.Width)
	require.True(t, cam.RestartOnEOF)

	model, err := rt.ModelManager.Get("yolo_tiny")
	require.NoError(t, err)
	require.Equal(t, "detector", model.Type)
	require.Equal(t, []int{1, 3, 416, 416}, model.InputShape)
}

func TestLoadSurvivesRestartFromCache(t *testing.T) {
	dir := writeConfigDir(t)
	rt1, err := runtime.Load(runtime.Options{ConfigDir: dir})
	require.NoError(t, err)
	rt1.Close()

	// The TOML sources stay in place: a second Load re-parses them (the
	// cache is a mirror, not a substitute for the source files), and this
	// proves re-opening the same cache file doesn't error.
	rt2, err := runtime.Load(runtime.Options{ConfigDir: dir})
	require.NoError(t, err)
	defer rt2.Close()

	list, err := rt2.CameraManager.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestContextGetSetScalarAndDuration(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("encoder_bitrate", "4000000")
	n, err := ctx.GetInt("encoder_bitrate")
	require.NoError(t, err)
	require.Equal(t, 4000000, n)

	ctx.Set("timeout", "250ms")
	d, err := ctx.GetDuration("timeout")
	require.NoError(t, err)
	require.Equal(t, "250ms", d.String())

	_, err = ctx.GetInt("missing")
	require.Error(t, err)
}

func TestContextDeviceAndCodecElements(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetDeviceIndex(1)
	require.Equal(t, 1, ctx.DeviceIndex())

	ctx.SetCodecElements("x264enc", "avdec_h264")
	require.Equal(t, "x264enc", ctx.EncoderElement())
	require.Equal(t, "avdec_h264", ctx.DecoderElement())
}

func TestContextSecretRoundTrip(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.SetSecret("rtsp_password", []byte("hunter2"))

	buf, err := ctx.Secret("rtsp_password")
	require.NoError(t, err)
	defer buf.Destroy()
	require.Equal(t, "hunter2", string(buf.Bytes()))

	_, err = ctx.Secret("missing")
	require.Error(t, err)
}
