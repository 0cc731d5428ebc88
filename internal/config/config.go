// Package config loads scenario files and the runtime settings of the
// command-line tools.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cxd309/mbcontact/internal/engine"
)

// Settings are read from the environment.
type Settings struct {
	LogLevel    string  `env:"MBCONTACT_LOG_LEVEL" envDefault:"info"`
	FDStep      float64 `env:"MBCONTACT_FD_STEP" envDefault:"1e-6"`
	FDTolerance float64 `env:"MBCONTACT_FD_TOLERANCE" envDefault:"1e-5"`
	Workers     int     `env:"MBCONTACT_WORKERS"` // 0 = GOMAXPROCS
}

// ParseEnv reads Settings from the environment and validates them.
func ParseEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.FDStep <= 0 {
		return Settings{}, fmt.Errorf("MBCONTACT_FD_STEP must be positive, got %g", s.FDStep)
	}
	if s.FDTolerance <= 0 {
		return Settings{}, fmt.Errorf("MBCONTACT_FD_TOLERANCE must be positive, got %g", s.FDTolerance)
	}
	if s.Workers < 0 {
		return Settings{}, fmt.Errorf("MBCONTACT_WORKERS must not be negative, got %d", s.Workers)
	}
	if _, err := s.Level(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Level returns the zerolog level named by LogLevel.
func (s Settings) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("MBCONTACT_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// LoadScenario reads a scenario from a YAML file. JSON files are accepted
// too, since YAML is a superset of JSON.
func LoadScenario(path string) (engine.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML or JSON scenario.
func ParseScenario(data []byte) (engine.Scenario, error) {
	var sc engine.Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return engine.Scenario{}, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if len(sc.Nodes) == 0 {
		return engine.Scenario{}, fmt.Errorf("scenario %q has no nodes", sc.Meta.ScenarioID)
	}
	return sc, nil
}
