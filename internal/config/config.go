// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents repository configuration stored in .bibdb/config.json.
type Config struct {
	GrobidURL          string   `json:"grobid_url,omitempty"`           // Full-text parser server, empty disables it
	CrossrefMailto     string   `json:"crossref_mailto,omitempty"`      // Polite-pool contact for DOI lookups
	OpenAlexMailto     string   `json:"openalex_mailto,omitempty"`      // Polite-pool contact for title search
	DefaultProjectArea string   `json:"default_project_area,omitempty"` // Applied to new entries when no flag given
	OwnerAliases       []string `json:"owner_aliases,omitempty"`        // Name spellings of the database owner
}

const (
	BibdbDir   = ".bibdb"
	ConfigFile = "config.json"
	DBFile     = "bibdb.db"
)

// BibdbPath returns the path to the .bibdb directory from a root path.
func BibdbPath(root string) string {
	return filepath.Join(root, BibdbDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, BibdbDir, ConfigFile)
}

// DBPath returns the path to the SQLite database from a root path.
func DBPath(root string) string {
	return filepath.Join(root, BibdbDir, DBFile)
}

// IsRepository checks if the given path contains a bibdb repository.
func IsRepository(root string) bool {
	info, err := os.Stat(BibdbPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a bibdb repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a bibdb repository (no .bibdb directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root. A
// missing config file yields defaults, not an error.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
