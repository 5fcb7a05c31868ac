// Package config holds the settings of an extraction run.
//
// Settings come from an optional YAML or TOML file, chosen by extension,
// and are then overridden by command-line flags. Validate must pass before
// any provider is started: configuration problems are fatal and are never
// discovered halfway through a unit.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatPython = "python"
	FormatJSON   = "json"
)

// Stdout is the Output value that selects standard output.
const Stdout = "-"

// Config is the run configuration.
type Config struct {
	// Output is the destination file for a single unit, or Stdout.
	Output string `yaml:"output" toml:"output"`

	// OutputDir receives one file per unit, named after the unit.
	OutputDir string `yaml:"output_dir" toml:"output_dir"`

	// Struct restricts top-level emission to one struct name.
	Struct string `yaml:"struct" toml:"struct"`

	// Format is python or json.
	Format string `yaml:"format" toml:"format"`

	// Trailer appends the list of emitted names.
	Trailer bool `yaml:"trailer" toml:"trailer"`

	// Catalog is an optional SQLite database recording every run.
	Catalog string `yaml:"catalog" toml:"catalog"`

	// Jobs bounds how many units are extracted concurrently.
	Jobs int `yaml:"jobs" toml:"jobs"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Format:  FormatPython,
		Trailer: true,
		Jobs:    1,
	}
}

// ConfigError reports an unusable configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Load reads a configuration file on top of the defaults. Keys absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, &ConfigError{Field: path, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, &ConfigError{Field: path, Message: fmt.Sprintf("failed to parse TOML: %v", err)}
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, &ConfigError{Field: path, Message: fmt.Sprintf("unknown key %q", undecoded[0].String())}
		}
	default:
		return cfg, &ConfigError{Field: path, Message: fmt.Sprintf("unsupported config extension %q (use .yaml, .yml or .toml)", ext)}
	}
	return cfg, nil
}

// Validate checks the configuration for a run over the given number of
// units.
func (c Config) Validate(units int) error {
	switch c.Format {
	case FormatPython, FormatJSON:
	default:
		return &ConfigError{Field: "format", Message: fmt.Sprintf("unknown format %q (must be python or json)", c.Format)}
	}
	if c.Jobs < 1 {
		return &ConfigError{Field: "jobs", Message: fmt.Sprintf("must be at least 1, got %d", c.Jobs)}
	}
	if c.Output == "" && c.OutputDir == "" {
		return &ConfigError{Field: "output", Message: "missing output destination (set output or output_dir)"}
	}
	if c.Output != "" && c.OutputDir != "" {
		return &ConfigError{Field: "output", Message: "output and output_dir are mutually exclusive"}
	}
	if units > 1 && c.OutputDir == "" {
		return &ConfigError{Field: "output_dir", Message: fmt.Sprintf("required when extracting %d units", units)}
	}
	return nil
}

// OutputPath returns the destination for unit. It is Stdout or a file path.
func (c Config) OutputPath(unit, ext string) string {
	if c.OutputDir == "" {
		return c.Output
	}
	base := filepath.Base(unit)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.OutputDir, base+ext)
}
