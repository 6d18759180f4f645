package runtime

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	bolt "go.etcd.io/bbolt"

	"github.com/saf-project/saf/errs"
)

// Runtime explicitly bundles the process-wide dependencies §4.7 calls
// for — Context, CameraManager, ModelManager, and a logger — into one
// value that callers hold explicitly (pipeline.Build does not take it),
// rather than reaching for hidden
// package-level state the way Context/CameraManager/ModelManager exist
// as global singletons in the original design (DESIGN NOTES: "Shared-
// state singletons").
type Runtime struct {
	Context       *Context
	CameraManager *CameraManager
	ModelManager  *ModelManager
	Logger        *log.Logger

	db *bolt.DB
}

// Options configures Load.
type Options struct {
	// ConfigDir holds cameras.toml and models.toml.
	ConfigDir string
	// CacheFile is the bbolt database file mirroring both catalogs.
	// ConfigDir/saf_cache.bbolt is used if empty.
	CacheFile string
	Logger    *log.Logger
}

// Load opens (creating if absent) the descriptor cache in opts.ConfigDir,
// parses cameras.toml and models.toml, and returns an assembled Runtime.
// This mirrors mailproxy.GenerateConfig's "one data directory holds
// everything this component needs" convention.
func Load(opts Options) (*Runtime, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ConfigDir == "" {
		return nil, errs.NewConfigError("runtime: ConfigDir is required")
	}
	if err := os.MkdirAll(opts.ConfigDir, 0700); err != nil {
		return nil, errs.NewConfigError("runtime: creating config dir %q: %v", opts.ConfigDir, err)
	}

	cacheFile := opts.CacheFile
	if cacheFile == "" {
		cacheFile = filepath.Join(opts.ConfigDir, "saf_cache.bbolt")
	}
	db, err := bolt.Open(cacheFile, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.NewRuntimeError("runtime: opening cache %q: %v", cacheFile, err)
	}

	cm, err := LoadCameraManager(filepath.Join(opts.ConfigDir, "cameras.toml"), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	mm, err := LoadModelManager(filepath.Join(opts.ConfigDir, "models.toml"), db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Runtime{
		Context:       NewContext(),
		CameraManager: cm,
		ModelManager:  mm,
		Logger:        opts.Logger.With("component", "runtime"),
		db:            db,
	}, nil
}

// Close releases the descriptor cache.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

var (
	defaultOnce sync.Once
	defaultRT   *Runtime
	defaultErr  error
)

// Default returns a lazily-built Runtime reading from the SAF_CONFIG_DIR
// environment variable (falling back to "./config"), as a convenience
// for the reference CLI applications only (DESIGN NOTES: "Global state
// remains permissible as an API convenience wrapper"). Library code
// should always construct a Runtime explicitly via Load.
func Default() (*Runtime, error) {
	defaultOnce.Do(func() {
		dir := os.Getenv("SAF_CONFIG_DIR")
		if dir == "" {
			dir = "./config"
		}
		defaultRT, defaultErr = Load(Options{ConfigDir: dir})
	})
	return defaultRT, defaultErr
}
