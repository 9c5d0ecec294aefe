// Package config loads treemaker settings from defaults, an optional YAML
// file and the environment. Command-line flags are applied on top by main.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"treemaker/pkg/codec"
	"treemaker/pkg/document"
	"treemaker/pkg/tree"
)

// DefaultFile is read from the working directory when no config path is given
const DefaultFile = ".treemaker.yaml"

// Environment variables overriding the config file
const (
	EnvFormat      = "TREEMAKER_FORMAT"
	EnvCompression = "TREEMAKER_COMPRESSION"
	EnvQuiet       = "TREEMAKER_QUIET"
)

// Config holds the settings shared by all commands
type Config struct {
	Format      document.Format   `yaml:"format"`
	Compression codec.Compression `yaml:"compression"`
	Ignore      []string          `yaml:"ignore"`
	DirPerm     os.FileMode       `yaml:"dir_perm"`
	FilePerm    os.FileMode       `yaml:"file_perm"`
	Quiet       bool              `yaml:"quiet"`
	Verbose     bool              `yaml:"verbose"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Format:      document.FormatJSON,
		Compression: codec.DefaultCompression,
		DirPerm:     tree.DefaultDirPerm,
		FilePerm:    tree.DefaultFilePerm,
	}
}

// Load returns the defaults overlaid with the config file at path and the
// environment. An empty path means DefaultFile, which may be absent; an
// explicit path must exist.
func Load(fsys afero.Fs, path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	data, err := afero.ReadFile(fsys, path)
	switch {
	case err == nil:
		// JSON documents are valid YAML, so one decoder serves both
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case optional && os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if val, ok := os.LookupEnv(EnvFormat); ok && val != "" {
		c.Format = document.Format(val)
	}
	if val, ok := os.LookupEnv(EnvCompression); ok && val != "" {
		c.Compression = codec.Compression(val)
	}
	if val, ok := os.LookupEnv(EnvQuiet); ok && val != "" {
		quiet, err := envToBool(EnvQuiet, val)
		if err != nil {
			return err
		}
		c.Quiet = quiet
	}
	return nil
}

// envToBool interprets an environment value as a boolean
func envToBool(key, val string) (bool, error) {
	switch strings.ToLower(val) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("boolean env key '%s' has non-bool value '%s'", key, val)
}

// Validate checks that every setting names something treemaker supports and
// normalizes the format name
func (c *Config) Validate() error {
	f, err := document.ParseFormat(string(c.Format))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Format = f
	if _, err := codec.ParseCompression(string(c.Compression)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, pat := range c.Ignore {
		if pat == "" {
			return fmt.Errorf("config: empty ignore pattern")
		}
	}
	if c.DirPerm == 0 || c.DirPerm&^os.ModePerm != 0 {
		return fmt.Errorf("config: invalid dir_perm %o", c.DirPerm)
	}
	if c.FilePerm == 0 || c.FilePerm&^os.ModePerm != 0 {
		return fmt.Errorf("config: invalid file_perm %o", c.FilePerm)
	}
	return nil
}
