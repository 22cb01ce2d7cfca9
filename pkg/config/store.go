package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file. YAML and JSON are both
// accepted. Unknown keys are rejected so that typos surface immediately.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Field: "file", Reason: fmt.Sprintf("%s does not exist (run 'ghostchrome init' to create one)", path)}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Relative profile dirs are resolved against the config file location
	if cfg.ProfileDir != "" && !filepath.IsAbs(cfg.ProfileDir) {
		cfg.ProfileDir = filepath.Join(filepath.Dir(path), cfg.ProfileDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document without validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigError{Field: "file", Reason: "is empty"}
		}
		return nil, &ConfigError{Field: "file", Reason: fmt.Sprintf("failed to decode: %v", err)}
	}
	return &cfg, nil
}

// NewMarkerToken returns a fresh marker token suitable for Config.MarkerToken.
func NewMarkerToken() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "--ghostchrome-marker-" + id[:20]
}

// WriteDefault writes DefaultConfig with a freshly generated marker token to
// path. It refuses to overwrite an existing file.
func WriteDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("config file %s already exists", path)
	}

	cfg := DefaultConfig()
	cfg.MarkerToken = NewMarkerToken()

	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML using a temp file and rename.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return WriteFileAtomic(path, buf.Bytes(), 0600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
