package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/pdftext"
)

var (
	bulkCategory    string
	bulkProjectArea string
	bulkPDF         string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk [file]",
	Short: "Add citations from a file, stdin, or a references PDF",
	Long: `Reads citation strings one per line and adds each as with 'bib add'.
Blank lines are skipped. Lines that fail to parse are reported but do
not stop the run. Reads stdin when no file is given.

With --pdf, citation-shaped lines are extracted from the PDF's reference
list instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBulk,
}

func init() {
	bulkCmd.Flags().StringVar(&bulkCategory, "category", string(citation.Publication), "Default category when a line does not imply one")
	bulkCmd.Flags().StringVar(&bulkProjectArea, "project-area", "", "Project area tag for new entries")
	bulkCmd.Flags().StringVar(&bulkPDF, "pdf", "", "Extract citations from a PDF reference list")
	rootCmd.AddCommand(bulkCmd)
}

func runBulk(cmd *cobra.Command, args []string) error {
	category := citation.Category(bulkCategory)
	if !category.Valid() {
		os.Exit(outputError(ExitConfigError, "invalid category: %s", bulkCategory))
	}

	var lines []string
	if bulkPDF != "" {
		var err error
		lines, err = pdftext.CitationLines(bulkPDF)
		if err != nil {
			os.Exit(outputError(ExitError, "reading %s: %v", bulkPDF, err))
		}
		if len(lines) == 0 {
			os.Exit(outputError(ExitDataError, "no citation lines found in %s", bulkPDF))
		}
	} else {
		var reader io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				os.Exit(outputError(ExitError, "%v", err))
			}
			defer f.Close()
			reader = f
		}

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			os.Exit(outputError(ExitError, "reading input: %v", err))
		}
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	cfg := mustLoadConfig(root)
	ctx := context.Background()
	svc := buildService(ctx, store, cfg)

	summary := svc.BulkAddCitations(ctx, lines, category, projectAreaOrDefault(bulkProjectArea, cfg))

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
