package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var enrichAll bool

var enrichCmd = &cobra.Command{
	Use:   "enrich [id]",
	Short: "Refresh external metadata for entries with a DOI",
	Long: `Looks up an entry's DOI in the registry and fills in any missing
abstract, URL, keywords, or subject area. The citation count is always
refreshed. Entries without a DOI are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichAll, "all", false, "Enrich every entry in the database")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if enrichAll == (len(args) == 1) {
		os.Exit(outputError(ExitConfigError, "provide an entry id or --all, not both"))
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	cfg := mustLoadConfig(root)
	ctx := context.Background()
	svc := buildService(ctx, store, cfg)

	if enrichAll {
		summary, err := svc.EnrichAll(ctx)
		if err != nil {
			os.Exit(outputError(ExitError, "%v", err))
		}
		if humanOutput {
			fmt.Printf("Enriched: %d\n", summary.Enriched)
			fmt.Printf("Skipped:  %d\n", summary.Skipped)
			fmt.Printf("Failed:   %d\n", summary.Failed)
			for _, e := range summary.Errors {
				fmt.Printf("  %s\n", e)
			}
			return nil
		}
		return outputJSON(summary)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		os.Exit(outputError(ExitConfigError, "invalid entry id: %s", args[0]))
	}

	changed, err := svc.Enrich(ctx, id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	status := "skipped"
	if changed {
		status = "enriched"
	}
	if humanOutput {
		fmt.Printf("Entry %d: %s\n", id, status)
		return nil
	}
	return outputJSON(StatusResponse{Status: status, Message: fmt.Sprintf("entry %d", id)})
}
