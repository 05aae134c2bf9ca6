// Package config loads and saves the engine's own configuration file,
// distinct from any installed package's manifest. Modeled on the
// teacher's load/save/default trio for its own configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the user-editable settings for a single prefix tree.
type Config struct {
	// Prefix is the root directory packages are installed into. Empty
	// means "use the default $HOME/.lilith".
	Prefix string `yaml:"prefix,omitempty"`

	// RepoScheme, RepoHost and RepoBranch override the abi.Prober
	// defaults for locating the upstream catalogue.
	RepoScheme string `yaml:"repo_scheme,omitempty"`
	RepoHost   string `yaml:"repo_host,omitempty"`
	RepoBranch string `yaml:"repo_branch,omitempty"`

	// FullDeps and NoDeps record the last install's dependency flags; see
	// SPEC_FULL's Open Question decision: these are NOT re-applied on
	// update, and no command reads them back.
	FullDeps bool `yaml:"full_deps,omitempty"`
	NoDeps   bool `yaml:"no_deps,omitempty"`
}

// Default returns an empty Config; every field's zero value means "use
// the built-in default" to its consumer.
func Default() *Config {
	return &Config{}
}

// Path returns the configuration file location for a given prefix root.
func Path(prefixRoot string) string {
	return filepath.Join(prefixRoot, "config.yaml")
}

// Load reads and parses the configuration file at path. A missing file
// is not an error: it yields Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating its parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
