package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/citation"
)

var (
	listCategory    string
	listProjectArea string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listProjectArea, "project-area", "", "Filter by project area")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var category citation.Category
	if listCategory != "" {
		category = citation.Category(listCategory)
		if !category.Valid() {
			os.Exit(outputError(ExitConfigError, "invalid category: %s", listCategory))
		}
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	entries, err := store.ListEntries(category, listProjectArea)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No entries found")
			return nil
		}
		for _, e := range entries {
			year := "----"
			if e.Year != 0 {
				year = fmt.Sprintf("%d", e.Year)
			}
			fmt.Printf("%4d  %s  %-17s  %s\n", e.ID, year, e.Category, truncateString(e.Title, 70))
		}
		fmt.Printf("\n%d entries\n", len(entries))
		return nil
	}

	resps := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resps = append(resps, newEntryResponse(e, nil))
	}
	return outputJSON(resps)
}
