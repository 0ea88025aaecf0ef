package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry and its author links",
	Long: `Removes an entry from the database. Author links are removed with it;
author records themselves are kept since they may be shared with other
entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		os.Exit(outputError(ExitConfigError, "invalid entry id: %s", args[0]))
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	deleted, err := store.DeleteEntry(id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}
	if !deleted {
		os.Exit(outputError(ExitDataError, "entry %d not found", id))
	}

	if humanOutput {
		fmt.Printf("Deleted entry %d\n", id)
		return nil
	}
	return outputJSON(StatusResponse{Status: "deleted", Message: fmt.Sprintf("entry %d", id)})
}
