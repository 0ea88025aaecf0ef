package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/config"
)

var importProjectArea string

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import entries from a CSL-JSON export",
	Long: `Imports a CSL-JSON file as produced by Zotero, Mendeley, or similar
reference managers. Accepts either a single item object or an array of
items. Items already present in the database are counted as duplicates
and left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importProjectArea, "project-area", "", "Project area tag for new entries")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(config.ExpandPath(args[0]))
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	cfg := mustLoadConfig(root)
	svc := buildServiceOffline(store, cfg)

	summary := svc.ImportCSL(data, projectAreaOrDefault(importProjectArea, cfg))

	if humanOutput {
		fmt.Printf("Created:    %d\n", summary.Created)
		fmt.Printf("Duplicates: %d\n", summary.Duplicates)
		fmt.Printf("Failed:     %d\n", summary.Failed)
		for _, e := range summary.Errors {
			fmt.Printf("  %s\n", e)
		}
		return nil
	}
	return outputJSON(summary)
}
