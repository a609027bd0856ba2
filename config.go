package asyncfsm

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config describes a machine in a form that can be loaded from YAML or the
// environment
type Config struct {
	Name           string   `yaml:"name,omitempty" env:"NAME"`
	States         []string `yaml:"states" env:"STATES" envSeparator:","`
	Initial        string   `yaml:"initial,omitempty" env:"INITIAL"`
	Mode           string   `yaml:"mode" env:"MODE"`
	BlockOnFailure bool     `yaml:"block_on_failure,omitempty" env:"BLOCK_ON_FAILURE"`
}

// ParseConfig decodes a YAML machine config. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, fmt.Errorf("yaml decode: %w", err))
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML machine config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ConfigFromEnv reads a machine config from environment variables named
// prefix + NAME, STATES, INITIAL, MODE and BLOCK_ON_FAILURE. envFiles, if
// given, are loaded first without overriding variables already set.
func ConfigFromEnv(prefix string, envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Definition converts the config to a definition builder
func (c Config) Definition() *Definition {
	d := NewDefinition().
		Mode(Mode(c.Mode)).
		Initial(StateID(c.Initial)).
		Name(c.Name)
	for _, s := range c.States {
		d.State(StateID(s))
	}
	if c.BlockOnFailure {
		d.BlockOnFailure()
	}
	return d
}

// New builds the machine described by cfg
func New(cfg Config, opts ...MachineOption) (FSM, error) {
	return cfg.Definition().Build(opts...)
}
