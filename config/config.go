// Package config implements the TOML loaders for cameras.toml and
// models.toml named in §6: pure parsing, with no caching or process
// state of its own. runtime.CameraManager/ModelManager call into this
// package once at startup and mirror the result into bbolt; anything
// that only needs the declared descriptors (a config-lint CLI, a test)
// can use this package directly without opening a cache database.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/saf-project/saf/errs"
)

// CameraDescriptor is one entry of cameras.toml (§6): name, video_uri,
// width/height, buffer size, and restart policy.
type CameraDescriptor struct {
	Name         string `toml:"name" json:"name"`
	VideoURI     string `toml:"video_uri" json:"video_uri"`
	Width        int    `toml:"width" json:"width"`
	Height       int    `toml:"height" json:"height"`
	BufferSize   int    `toml:"buffer_size" json:"buffer_size"`
	RestartOnEOF bool   `toml:"restart_on_eof" json:"restart_on_eof"`
}

type camerasFile struct {
	Cameras []CameraDescriptor `toml:"camera"`
}

// ModelDescriptor is one entry of models.toml (§6): name, type, backing
// files, input shape, default layers, label file.
type ModelDescriptor struct {
	Name               string   `toml:"name" json:"name"`
	Type               string   `toml:"type" json:"type"`
	Files              []string `toml:"files" json:"files"`
	InputShape         []int    `toml:"input_shape" json:"input_shape"`
	DefaultInputLayer  string   `toml:"default_input_layer" json:"default_input_layer"`
	DefaultOutputLayer string   `toml:"default_output_layer" json:"default_output_layer"`
	LabelFile          string   `toml:"label_file" json:"label_file"`
}

type modelsFile struct {
	Models []ModelDescriptor `toml:"model"`
}

// LoadCameras parses a cameras.toml file at path, the same nested-table
// style mailproxy.GenerateConfig produces for its own TOML documents.
func LoadCameras(path string) ([]CameraDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError("config: reading %q: %v", path, err)
	}
	var parsed camerasFile
	if _, err := toml.Decode(string(data), &parsed); err != nil {
		return nil, errs.NewConfigError("config: parsing %q: %v", path, err)
	}
	return parsed.Cameras, nil
}

// LoadModels parses a models.toml file at path.
func LoadModels(path string) ([]ModelDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError("config: reading %q: %v", path, err)
	}
	var parsed modelsFile
	if _, err := toml.Decode(string(data), &parsed); err != nil {
		return nil, errs.NewConfigError("config: parsing %q: %v", path, err)
	}
	return parsed.Models, nil
}
