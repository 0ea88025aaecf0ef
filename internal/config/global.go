package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/bib/config.yml.
// Repository config overrides these values field by field.
type GlobalConfig struct {
	GrobidURL      string   `yaml:"grobid_url,omitempty"`
	CrossrefMailto string   `yaml:"crossref_mailto,omitempty"`
	OpenAlexMailto string   `yaml:"openalex_mailto,omitempty"`
	OwnerAliases   []string `yaml:"owner_aliases,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "bib"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bib/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Resolve merges the repository config over the global config: any field
// the repository sets wins, the rest falls back to the global values.
func Resolve(repo *Config) *Config {
	global, _ := LoadGlobalConfig()

	out := *repo
	if out.GrobidURL == "" {
		out.GrobidURL = global.GrobidURL
	}
	if out.CrossrefMailto == "" {
		out.CrossrefMailto = global.CrossrefMailto
	}
	if out.OpenAlexMailto == "" {
		out.OpenAlexMailto = global.OpenAlexMailto
	}
	if len(out.OwnerAliases) == 0 {
		out.OwnerAliases = global.OwnerAliases
	}
	return &out
}
