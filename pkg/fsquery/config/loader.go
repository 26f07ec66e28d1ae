package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat indicates a settings file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

type decoder struct {
	name      string
	unmarshal func([]byte, any) error
}

var decoders = map[string]decoder{
	".yaml": {"yaml", yaml.Unmarshal},
	".yml":  {"yaml", yaml.Unmarshal},
	".json": {"json", json.Unmarshal},
}

// FromFile loads a settings file, picking the decoder by extension
// (.yaml, .yml or .json).
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	return decode(dec, data)
}

// FromYAML parses YAML data. An empty document yields an empty Config.
func FromYAML(data []byte) (Config, error) {
	return decode(decoders[".yaml"], data)
}

// FromJSON parses JSON data.
func FromJSON(data []byte) (Config, error) {
	return decode(decoders[".json"], data)
}

func decode(dec decoder, data []byte) (Config, error) {
	var tree map[string]any
	if err := dec.unmarshal(data, &tree); err != nil {
		return Config{}, fmt.Errorf("parse %s settings: %w", dec.name, err)
	}
	return New(tree), nil
}
