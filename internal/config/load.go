package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultFile is the optional config file read from the current directory.
const DefaultFile = ".jobmedic.yaml"

// Load returns the defaults from New overlaid with the YAML file at path.
// Environment variables in the file are expanded. A missing file is not an
// error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.UnmarshalStrict([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
