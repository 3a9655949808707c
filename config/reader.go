package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/latticeplanner/logging"
)

// Read reads a config from the given file, substituting environment variables first. Files ending
// in .yaml or .yml are read as YAML, everything else as JSON.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	return FromReader(filePath, bytes.NewReader(buf), ext == ".yaml" || ext == ".yml", logger)
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file the
// reader originated from. Fields missing from the input keep their defaults.
func FromReader(originalPath string, r io.Reader, isYAML bool, logger logging.Logger) (*Config, error) {
	cfg := Default()
	if isYAML {
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "failed to decode Config from yaml")
		}
	} else {
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode Config from json")
		}
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to validate Config")
	}
	logger.Debugw("read config", "path", originalPath, "debug", cfg.Debug)
	return cfg, nil
}
