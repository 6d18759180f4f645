// Package runtime gives the process-wide configuration singletons of
// §4.7 an explicit, constructed shape instead of hidden globals: Context
// (string-keyed config + device/codec settings + locked credentials),
// CameraManager and ModelManager (TOML descriptor catalogs mirrored into
// an embedded bbolt cache), bundled together as a Runtime value that
// callers construct and hold explicitly rather than reach for through
// package state; pipeline.Build does not take it. A package-level Default() wraps a lazily-built Runtime as a
// convenience for the reference CLI apps only.
package runtime

import (
	"strconv"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/saf-project/saf/errs"
)

// Context exposes string-keyed configuration plus the handful of
// settings operators consume directly (compute device index, codec
// element names), and stores any credential-shaped value (RTSP/MQTT
// passwords, API tokens) inside a memguard.Enclave rather than a plain
// string, matching the teacher's use of memguard for session key
// material in ratchet.go.
type Context struct {
	mu sync.RWMutex

	values      map[string]string
	deviceIndex int
	encoderName string
	decoderName string

	secrets map[string]*memguard.Enclave
}

// NewContext returns an empty Context with deviceIndex 0 and no codec
// element names set.
func NewContext() *Context {
	return &Context{
		values:  make(map[string]string),
		secrets: make(map[string]*memguard.Enclave),
	}
}

// Set stores a plain configuration value.
func (c *Context) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get retrieves a plain configuration value.
func (c *Context) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// GetInt retrieves a configuration value parsed as an int.
func (c *Context) GetInt(key string) (int, error) {
	v, ok := c.Get(key)
	if !ok {
		return 0, &errs.KeyMissingError{Key: key}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.NewConfigError("context: key %q is not an int: %v", key, err)
	}
	return n, nil
}

// GetDuration retrieves a configuration value parsed with
// time.ParseDuration.
func (c *Context) GetDuration(key string) (time.Duration, error) {
	v, ok := c.Get(key)
	if !ok {
		return 0, &errs.KeyMissingError{Key: key}
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errs.NewConfigError("context: key %q is not a duration: %v", key, err)
	}
	return d, nil
}

// SetDeviceIndex records the compute device (GPU/accelerator) index to
// use for model evaluation.
func (c *Context) SetDeviceIndex(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceIndex = idx
}

// DeviceIndex returns the configured compute device index.
func (c *Context) DeviceIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceIndex
}

// SetCodecElements records GStreamer-style encoder/decoder element
// names for EncoderElement/DecoderElement to return; no operator in
// this module reads them.
func (c *Context) SetCodecElements(encoder, decoder string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoderName = encoder
	c.decoderName = decoder
}

// EncoderElement returns the configured encoder element name.
func (c *Context) EncoderElement() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encoderName
}

// DecoderElement returns the configured decoder element name.
func (c *Context) DecoderElement() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decoderName
}

// SetSecret locks value in a memguard.Enclave under key, replacing any
// enclave previously stored there.
func (c *Context) SetSecret(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[key] = memguard.NewEnclave(append([]byte(nil), value...))
}

// Secret opens the enclave stored under key and returns its plaintext in
// a caller-owned LockedBuffer, which the caller must Destroy when done.
func (c *Context) Secret(key string) (*memguard.LockedBuffer, error) {
	c.mu.RLock()
	enc, ok := c.secrets[key]
	c.mu.RUnlock()
	if !ok {
		return nil, &errs.KeyMissingError{Key: key}
	}
	buf, err := enc.Open()
	if err != nil {
		return nil, errs.NewRuntimeError("context: opening secret %q: %v", key, err)
	}
	return buf, nil
}
