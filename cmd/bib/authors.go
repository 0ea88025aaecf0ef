package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var authorsCmd = &cobra.Command{
	Use:   "authors [name]",
	Short: "List authors, or the entries of one author",
	Long: `With no argument, lists every author with their entry count, most
prolific first. With a "Surname, Initials" argument, lists that author's
entries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthors,
}

func init() {
	rootCmd.AddCommand(authorsCmd)
}

func runAuthors(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	if len(args) == 1 {
		entries, err := store.EntriesByAuthor(args[0])
		if err != nil {
			os.Exit(outputError(ExitError, "%v", err))
		}
		if humanOutput {
			if len(entries) == 0 {
				fmt.Printf("No entries for %s\n", args[0])
				return nil
			}
			for _, e := range entries {
				year := "----"
				if e.Year != 0 {
					year = fmt.Sprintf("%d", e.Year)
				}
				fmt.Printf("%4d  %s  %s\n", e.ID, year, truncateString(e.Title, 70))
			}
			return nil
		}
		resps := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			resps = append(resps, newEntryResponse(e, nil))
		}
		return outputJSON(resps)
	}

	authors, err := store.ListAuthors()
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	if humanOutput {
		for _, a := range authors {
			marker := " "
			if a.IsOwner {
				marker = "*"
			}
			fmt.Printf("%s %3d  %s\n", marker, a.EntryCount, a.Name)
		}
		return nil
	}

	type authorListItem struct {
		Name       string `json:"name"`
		EntryCount int    `json:"entry_count"`
		IsOwner    bool   `json:"is_owner,omitempty"`
	}
	items := make([]authorListItem, 0, len(authors))
	for _, a := range authors {
		items = append(items, authorListItem{Name: a.Name, EntryCount: a.EntryCount, IsOwner: a.IsOwner})
	}
	return outputJSON(items)
}
