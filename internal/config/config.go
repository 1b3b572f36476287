// Package config loads the dirscan configuration from YAML or TOML files and
// applies it to the process-wide tasklog settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abyssdigger/tasklog"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Output destinations that are not file paths.
const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

// Config holds the settings of a dirscan run.
type Config struct {
	Tag      string `yaml:"tag" toml:"tag"`
	Version  string `yaml:"version" toml:"version"`
	Output   string `yaml:"output" toml:"output"` // stderr, stdout or a file path (appended to)
	Workers  int    `yaml:"workers" toml:"workers"`
	MaxDepth int    `yaml:"max_depth" toml:"max_depth"`
	Verbose  bool   `yaml:"verbose" toml:"verbose"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Tag:      tasklog.DEFAULT_TAG,
		Output:   OutputStderr,
		Workers:  4,
		MaxDepth: 8,
	}
}

// Load reads the file at path over the defaults. The format is chosen by
// extension (.yaml, .yml or .toml). A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if strings.ContainsAny(c.Tag, "\t\n") {
		return errors.New("tag must not contain tabs or newlines")
	}
	return nil
}

// Apply pushes the configuration into the tasklog process settings and installs
// the output sink. The returned closer releases an output file, if one was
// opened; it is never nil.
func (c *Config) Apply() (io.Closer, error) {
	out, closer, err := c.openOutput()
	if err != nil {
		return nil, err
	}
	if c.Tag != "" {
		tasklog.SetTag(c.Tag)
	}
	if c.Version != "" {
		tasklog.SetVersion(c.Version)
	}
	tasklog.SetVerbose(c.Verbose)
	tasklog.SetOutput(tasklog.NewSink(out))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (c *Config) openOutput() (io.Writer, io.Closer, error) {
	switch c.Output {
	case "", OutputStderr:
		return os.Stderr, nopCloser{}, nil
	case OutputStdout:
		return os.Stdout, nopCloser{}, nil
	}
	f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // log file readable by owner and group
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return f, f, nil
}
