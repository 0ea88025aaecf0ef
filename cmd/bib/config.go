package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set repository configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show configuration (optionally a single key)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Supported keys:

  grobid_url            full-text parser server URL
  crossref_mailto       polite-pool contact for registry lookups
  openalex_mailto       polite-pool contact for title search
  default_project_area  project area applied when no flag is given
  owner_aliases         comma-separated owner name spellings`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg, err := config.Load(root)
	if err != nil {
		os.Exit(outputError(ExitConfigError, "%v", err))
	}

	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("grobid_url:           %s\n", cfg.GrobidURL)
			fmt.Printf("crossref_mailto:      %s\n", cfg.CrossrefMailto)
			fmt.Printf("openalex_mailto:      %s\n", cfg.OpenAlexMailto)
			fmt.Printf("default_project_area: %s\n", cfg.DefaultProjectArea)
			fmt.Printf("owner_aliases:        %s\n", strings.Join(cfg.OwnerAliases, ", "))
			return nil
		}
		return outputJSON(cfg)
	}

	val, ok := configValue(cfg, args[0])
	if !ok {
		os.Exit(outputError(ExitConfigError, "unknown config key: %s", args[0]))
	}

	if humanOutput {
		fmt.Println(val)
		return nil
	}
	return outputJSON(map[string]string{args[0]: val})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg, err := config.Load(root)
	if err != nil {
		os.Exit(outputError(ExitConfigError, "%v", err))
	}

	key, value := args[0], args[1]
	switch key {
	case "grobid_url":
		cfg.GrobidURL = value
	case "crossref_mailto":
		cfg.CrossrefMailto = value
	case "openalex_mailto":
		cfg.OpenAlexMailto = value
	case "default_project_area":
		cfg.DefaultProjectArea = value
	case "owner_aliases":
		cfg.OwnerAliases = splitAliases(value)
	default:
		os.Exit(outputError(ExitConfigError, "unknown config key: %s", key))
	}

	if err := cfg.Save(root); err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	if humanOutput {
		fmt.Printf("Set %s\n", key)
		return nil
	}
	return outputJSON(StatusResponse{Status: "updated", Message: key})
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "grobid_url":
		return cfg.GrobidURL, true
	case "crossref_mailto":
		return cfg.CrossrefMailto, true
	case "openalex_mailto":
		return cfg.OpenAlexMailto, true
	case "default_project_area":
		return cfg.DefaultProjectArea, true
	case "owner_aliases":
		return strings.Join(cfg.OwnerAliases, ", "), true
	}
	return "", false
}

func splitAliases(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
