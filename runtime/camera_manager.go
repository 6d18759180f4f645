package runtime

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/saf-project/saf/config"
	"github.com/saf-project/saf/errs"
)

var cameraBucket = []byte("cameras")

// CameraDescriptor is one entry of cameras.toml.
type CameraDescriptor = config.CameraDescriptor

// CameraManager parses cameras.toml once (via config.LoadCameras) and
// mirrors every descriptor into a bbolt bucket keyed by name (§4.7).
// Lookups read the bucket; every load re-parses the TOML file, so the
// cache does not replace it.
type CameraManager struct {
	db *bolt.DB
}

// LoadCameraManager parses path (TOML) and mirrors its descriptors into
// db's "cameras" bucket.
func LoadCameraManager(path string, db *bolt.DB) (*CameraManager, error) {
	descriptors, err := config.LoadCameras(path)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(cameraBucket)
		if err != nil {
			return err
		}
		for _, d := range descriptors {
			encoded, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(d.Name), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errs.NewRuntimeError("mirroring camera descriptors into cache: %v", err)
	}

	return &CameraManager{db: db}, nil
}

// Get returns the named camera descriptor from the cache.
func (m *CameraManager) Get(name string) (CameraDescriptor, error) {
	var d CameraDescriptor
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cameraBucket)
		if b == nil {
			return &errs.KeyMissingError{Key: name}
		}
		raw := b.Get([]byte(name))
		if raw == nil {
			return &errs.KeyMissingError{Key: name}
		}
		return json.Unmarshal(raw, &d)
	})
	if err != nil {
		return CameraDescriptor{}, err
	}
	return d, nil
}

// List returns every cached camera descriptor.
func (m *CameraManager) List() ([]CameraDescriptor, error) {
	var out []CameraDescriptor
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cameraBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var d CameraDescriptor
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			out = append(out, d)
			return nil
		})
	})
	if err != nil {
		return nil, errs.NewRuntimeError("listing camera descriptors: %v", err)
	}
	return out, nil
}
