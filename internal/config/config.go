// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads the fupsim daemon configuration.
//
// Config file locations, in priority order:
//
//	$FUPSIM_CONFIG
//	./fupsim.yaml
//	$XDG_CONFIG_HOME/fupsim/config.yaml
//	~/.config/fupsim/config.yaml
//
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/db47h/fupsim"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable holding an explicit config
	// path.
	EnvConfigPath = "FUPSIM_CONFIG"
	// FileName is the config file name looked up in the working directory.
	FileName = "fupsim.yaml"
	dirName  = "fupsim"
)

// Defaults.
//
const (
	DefaultAddr = ":3100"
	DefaultTick = Duration(fupsim.DefaultPeriod)
)

// Config is the daemon configuration.
//
type Config struct {
	Tick     Duration          `yaml:"tick"`
	Addr     string            `yaml:"addr"`
	Project  string            `yaml:"project,omitempty"`
	Database string            `yaml:"database,omitempty"`
	Watch    bool              `yaml:"watch,omitempty"`
	Presets  []fupsim.Variable `yaml:"presets,omitempty"`
}

// Duration is a time.Duration written as a string ("200ms", "1s") in YAML.
//
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
//
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
//
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	if v < 0 {
		return errors.Errorf("line %d: negative duration %s", n.Line, s)
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns the configuration used when no config file is found.
//
func DefaultConfig() *Config {
	c := new(Config)
	c.applyDefaults()
	return c
}

// Load finds and loads the config file, or returns DefaultConfig if there is
// none. It also returns the path of the loaded file, "" if none.
//
func Load() (*Config, string, error) {
	path := FindPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the config file at path.
//
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}
	var c Config
	if err = yaml.Unmarshal(data, &c); err != nil {
		return nil, path, errors.Wrapf(err, "parse config %s", path)
	}
	c.applyDefaults()
	return &c, path, nil
}

// Save writes c to path, creating its directory if needed.
//
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.Tick == 0 {
		c.Tick = DefaultTick
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Presets == nil { // "presets: []" disables presets
		c.Presets = append([]fupsim.Variable(nil), fupsim.DefaultPresets...)
	}
}

// FindPath returns the path of the first config file found, "" if none.
//
func FindPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" && exists(p) {
		return p
	}
	if exists(FileName) {
		if abs, err := filepath.Abs(FileName); err == nil {
			return abs
		}
		return FileName
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if p := filepath.Join(xdg, dirName, "config.yaml"); exists(p) {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if p := filepath.Join(home, ".config", dirName, "config.yaml"); exists(p) {
			return p
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
