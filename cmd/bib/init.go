package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/config"
	"github.com/anumlab/bibdb/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a bibliography repository in the current directory",
	Long: `Creates a .bibdb directory with a default configuration file and an
empty SQLite database. Run once per repository before any other command.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		os.Exit(outputError(ExitError, "getting current directory: %v", err))
	}

	if config.IsRepository(cwd) {
		os.Exit(outputError(ExitConfigError, "already a bibdb repository: %s", config.BibdbPath(cwd)))
	}

	if err := os.MkdirAll(config.BibdbPath(cwd), 0755); err != nil {
		os.Exit(outputError(ExitError, "creating repository directory: %v", err))
	}

	cfg := &config.Config{}
	if err := cfg.Save(cwd); err != nil {
		os.Exit(outputError(ExitError, "writing config: %v", err))
	}

	store, err := storage.Open(config.DBPath(cwd))
	if err != nil {
		os.Exit(outputError(ExitError, "creating database: %v", err))
	}
	defer store.Close()

	if humanOutput {
		fmt.Printf("Initialized empty bibdb repository in %s\n", config.BibdbPath(cwd))
		return nil
	}

	return outputJSON(StatusResponse{
		Status:  "initialized",
		Message: config.BibdbPath(cwd),
	})
}
