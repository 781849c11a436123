package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Settings are runtime knobs read from the environment, distinct from
// the per-experiment YAML. A .env file loaded at startup feeds these
// the same way.
type Settings struct {
	// DBPath is where the run store lives.
	DBPath string `envconfig:"DB_PATH" default:"textreg.db"`

	// Parallelism overrides the experiment's worker count when > 0.
	Parallelism int `envconfig:"PARALLELISM" default:"0"`

	// ProgressPerSec bounds progress updates printed per second.
	ProgressPerSec float64 `envconfig:"PROGRESS_PER_SEC" default:"4"`
}

// EnvPrefix namespaces the environment variables (TEXTREG_DB_PATH, ...).
const EnvPrefix = "TEXTREG"

// LoadSettings reads settings from the environment.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("reading environment settings: %w", err)
	}
	return &s, nil
}
