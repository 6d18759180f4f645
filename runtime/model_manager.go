package runtime

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/saf-project/saf/config"
	"github.com/saf-project/saf/errs"
)

var modelBucket = []byte("models")

// ModelDescriptor is one entry of models.toml.
type ModelDescriptor = config.ModelDescriptor

// ModelManager parses models.toml once (via config.LoadModels) and
// mirrors every descriptor into a bbolt bucket keyed by name (§4.7).
type ModelManager struct {
	db *bolt.DB
}

// LoadModelManager parses path (TOML) and mirrors its descriptors into
// db's "models" bucket.
func LoadModelManager(path string, db *bolt.DB) (*ModelManager, error) {
	descriptors, err := config.LoadModels(path)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(modelBucket)
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
		return nil, errs.NewRuntimeError("mirroring model descriptors into cache: %v", err)
	}

	return &ModelManager{db: db}, nil
}

// Get returns the named model descriptor from the cache.
func (m *ModelManager) Get(name string) (ModelDescriptor, error) {
	var d ModelDescriptor
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(modelBucket)
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
		return ModelDescriptor{}, err
	}
	return d, nil
}

// List returns every cached model descriptor.
func (m *ModelManager) List() ([]ModelDescriptor, error) {
	var out []ModelDescriptor
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(modelBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var d ModelDescriptor
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			out = append(out, d)
			return nil
		})
	})
	if err != nil {
		return nil, errs.NewRuntimeError("listing model descriptors: %v", err)
	}
	return out, nil
}
