// Package config handles loading preprocessor configuration from files.
//
// Configuration is a YAML file named shaderpp.yaml or .shaderpp.yaml, searched
// for in the directory of the input and its parent directories.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fwessels/shaderpp/internal/lexer"
)

// Config represents the configuration file structure. All fields are
// optional.
type Config struct {
	// Defines are predefined object-like macros, name to replacement text.
	Defines map[string]string `yaml:"defines,omitempty"`

	// TypeNames are identifiers the lexer reports as type names, in addition
	// to the built-in shader types.
	TypeNames []string `yaml:"typeNames,omitempty"`

	// IncludeRoot confines file includes to this directory
	IncludeRoot string `yaml:"includeRoot,omitempty"`

	MaxExpansionDepth int `yaml:"maxExpansionDepth,omitempty"`

	// IncludeCacheSize is the number of fetched includes kept in memory
	IncludeCacheSize int `yaml:"includeCacheSize,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
}

// DefaultIncludeCacheSize applies when the file does not set one.
const DefaultIncludeCacheSize = 64

// FileNames are the names searched for config files, in order of preference.
var FileNames = []string{
	"shaderpp.yaml",
	".shaderpp.yaml",
}

// Load searches for a config file starting from the given directory and
// walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse decodes a YAML configuration. Unknown fields are an error.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.MaxExpansionDepth < 0 {
		return nil, errors.Errorf("maxExpansionDepth must not be negative, got %d", cfg.MaxExpansionDepth)
	}
	if cfg.IncludeCacheSize < 0 {
		return nil, errors.Errorf("includeCacheSize must not be negative, got %d", cfg.IncludeCacheSize)
	}
	if cfg.LogLevel != "" {
		if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
			return nil, errors.Wrap(err, "logLevel")
		}
	}
	for name := range cfg.Defines {
		if !lexer.IsIdentifier(name) {
			return nil, errors.Errorf("define %q is not an identifier", name)
		}
	}
	return &cfg, nil
}

// ParseDefine splits a command line definition: "NAME=VALUE", or "NAME"
// which defines NAME as 1.
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

// MergeOptions are the command line settings. Zero values mean "not set".
type MergeOptions struct {
	Defines   []string // NAME or NAME=VALUE
	TypeNames []string
	LogLevel  string
}

// Merge returns a copy of c with the command line settings applied on top.
// Command line defines replace file defines of the same name; type names are
// appended. c may be nil.
func (c *Config) Merge(cli MergeOptions) (*Config, error) {
	out := &Config{}
	if c != nil {
		*out = *c
		out.TypeNames = append([]string(nil), c.TypeNames...)
	}
	out.Defines = map[string]string{}
	if c != nil {
		for k, v := range c.Defines {
			out.Defines[k] = v
		}
	}

	for _, d := range cli.Defines {
		name, value := ParseDefine(d)
		if !lexer.IsIdentifier(name) {
			return nil, errors.Errorf("-D %s: %q is not an identifier", d, name)
		}
		out.Defines[name] = value
	}
	out.TypeNames = append(out.TypeNames, cli.TypeNames...)
	if cli.LogLevel != "" {
		if _, err := logrus.ParseLevel(cli.LogLevel); err != nil {
			return nil, errors.Wrap(err, "log level")
		}
		out.LogLevel = cli.LogLevel
	}
	if out.IncludeCacheSize == 0 {
		out.IncludeCacheSize = DefaultIncludeCacheSize
	}
	return out, nil
}

// Level returns the configured log level, Warn when unset.
func (c *Config) Level() logrus.Level {
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		return lvl
	}
	return logrus.WarnLevel
}
