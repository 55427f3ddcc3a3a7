package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rdtsim/rdtsim/sim/protocol"
)

// RunDefaults holds run-wide defaults from defaults.yaml.
type RunDefaults struct {
	Seed       int64  `yaml:"seed"`
	TraceLevel string `yaml:"trace_level"`
	Arrival    string `yaml:"arrival"`
}

// Preset holds the tuning of one protocol in defaults.yaml.
type Preset struct {
	WindowSize  int     `yaml:"window_size"`
	Timeout     float64 `yaml:"timeout"`
	MaxBuffered int     `yaml:"max_buffered"`
}

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version   string            `yaml:"version"`
	Run       RunDefaults       `yaml:"run"`
	Protocols map[string]Preset `yaml:"protocols"`
}

// builtinDefaults is used when no defaults file is present.
func builtinDefaults() Config {
	return Config{
		Version: "1",
		Run:     RunDefaults{Seed: 42},
		Protocols: map[string]Preset{
			protocol.NameStopAndWait: {Timeout: protocol.DefaultTimeout, MaxBuffered: protocol.DefaultMaxBuffered},
			protocol.NameGoBackN:     {WindowSize: protocol.DefaultWindowSize, Timeout: protocol.DefaultTimeout, MaxBuffered: protocol.DefaultMaxBuffered},
		},
	}
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Uses strict field checking: typos must cause errors.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading defaults file %s: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return cfg, nil
}

// resolveDefaults loads path, falling back to the built-in presets when the
// file does not exist and the user did not ask for it explicitly.
func resolveDefaults(path string, explicit bool) (Config, error) {
	cfg, err := loadDefaultsConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return builtinDefaults(), nil
	}
	return Config{}, err
}

// Preset returns the preset for a protocol name, accepting the long aliases too.
func (c Config) Preset(name string) (Preset, bool) {
	switch name {
	case "stop-and-wait":
		name = protocol.NameStopAndWait
	case "go-back-n":
		name = protocol.NameGoBackN
	}
	p, ok := c.Protocols[name]
	return p, ok
}
