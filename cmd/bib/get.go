package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single entry with its authors",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		os.Exit(outputError(ExitConfigError, "invalid entry id: %s", args[0]))
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	entry, err := store.GetEntry(id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}
	if entry == nil {
		os.Exit(outputError(ExitDataError, "entry %d not found", id))
	}

	authors, err := store.EntryAuthors(id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	if humanOutput {
		printEntryHuman(entry, authors)
		return nil
	}
	return outputJSON(newEntryResponse(entry, authors))
}
