// Package main provides the bib CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bib",
	Short: "Personal bibliography database with citation parsing",
	Long: `bib maintains a personal bibliographic database.

It ingests free-text citation strings and CSL-JSON exports, normalizes
them into structured entries with ordered authors, and enriches entries
with externally sourced metadata (abstract, citation count, keywords)
when a DOI or title match is available. All commands output JSON by
default for easy scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// getRepoRoot returns the repository root, or exits with an error if not in a repository.
func getRepoRoot() (string, int) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}

	// Check BIB_ROOT environment variable first
	if root := os.Getenv("BIB_ROOT"); root != "" {
		cwd = root
	}

	return cwd, 0
}
