// Command pipeline is the reference CLI app of §6: it parses the common
// --config-dir/--camera/--display/--device options plus a --spec path to
// a pipeline JSON document, builds and starts the pipeline, and blocks
// until SIGINT or SIGTERM arrives, then stops the pipeline. It does not
// return when the operators stop on their own (e.g. a Camera reaching
// EOF with no restart configured).
package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/log"

	_ "github.com/saf-project/saf/operators/buffer"
	_ "github.com/saf-project/saf/operators/camera"
	_ "github.com/saf-project/saf/operators/compressor"
	_ "github.com/saf-project/saf/operators/encoder"
	_ "github.com/saf-project/saf/operators/flowcontrol"
	_ "github.com/saf-project/saf/operators/nne"
	_ "github.com/saf-project/saf/operators/strider"
	_ "github.com/saf-project/saf/operators/throttler"
	_ "github.com/saf-project/saf/operators/transform"
	_ "github.com/saf-project/saf/operators/transport"
	_ "github.com/saf-project/saf/operators/vision"
	_ "github.com/saf-project/saf/operators/writers"

	"github.com/saf-project/saf/pipeline"
	"github.com/saf-project/saf/runtime"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config-dir", "./config", "directory containing cameras.toml and models.toml")
	camera := flag.String("camera", "", "camera name to run, if the spec needs one selected")
	display := flag.Bool("display", false, "show a live preview window (unsupported headless; logged only)")
	device := flag.Int("device", -1, "compute device index")
	specPath := flag.String("spec", "", "path to the pipeline JSON spec (required)")
	bufSize := flag.Int("buffer-size", 32, "per-reader stream buffer size")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	logger := log.Default()

	if *showVersion {
		logger.Info("pipeline", "version", versioninfo.Version, "revision", versioninfo.Revision)
		return 0
	}

	if *specPath == "" {
		logger.Error("--spec is required")
		return 1
	}

	rt, err := runtime.Load(runtime.Options{ConfigDir: *configDir, Logger: logger})
	if err != nil {
		logger.Error("loading runtime", "err", err)
		return 1
	}
	defer rt.Close()

	rt.Context.SetDeviceIndex(*device)
	if *camera != "" {
		rt.Context.Set("camera", *camera)
	}
	if *display {
		logger.Warn("--display has no effect in this headless build")
	}

	data, err := os.ReadFile(*specPath)
	if err != nil {
		logger.Error("reading spec", "path", *specPath, "err", err)
		return 1
	}
	var spec pipeline.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		logger.Error("parsing spec", "err", err)
		return 1
	}

	p := pipeline.New(*bufSize, logger)
	if err := p.Build(spec); err != nil {
		logger.Error("building pipeline", "err", err)
		return 1
	}

	if !p.Start() {
		logger.Error("pipeline failed to start")
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if !p.Stop() {
		logger.Error("pipeline did not stop cleanly")
		return 1
	}
	return 0
}
