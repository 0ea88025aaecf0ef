package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/fusion"
	"github.com/anumlab/bibdb/internal/pdftext"
)

var (
	addCategory    string
	addProjectArea string
	addPDF         string
)

var addCmd = &cobra.Command{
	Use:   "add [citation text]",
	Short: "Parse a citation and add it to the database",
	Long: `Parses a free-text citation string, fuses in metadata from whatever
providers are configured, and stores the result. Resubmitting a citation
that matches an existing entry reports the existing id instead of
creating a duplicate.

With --pdf, the citation text is derived from the file's first pages
(title line and embedded DOI) instead of the argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addCategory, "category", string(citation.Publication), "Default category when the text does not imply one")
	addCmd.Flags().StringVar(&addProjectArea, "project-area", "", "Project area tag for the new entry")
	addCmd.Flags().StringVar(&addPDF, "pdf", "", "Extract the citation from a PDF file instead of text")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	category := citation.Category(addCategory)
	if !category.Valid() {
		os.Exit(outputError(ExitConfigError, "invalid category: %s", addCategory))
	}

	var text string
	switch {
	case addPDF != "":
		var err error
		text, err = citationFromPDF(addPDF)
		if err != nil {
			os.Exit(outputError(ExitDataError, "%v", err))
		}
	case len(args) == 1:
		text = args[0]
	default:
		os.Exit(outputError(ExitConfigError, "citation text or --pdf required"))
	}

	root := mustFindRepository()
	store := mustOpenStore(root)
	defer store.Close()

	cfg := mustLoadConfig(root)
	ctx := context.Background()
	svc := buildService(ctx, store, cfg)

	id, isNew, err := svc.AddCitation(ctx, text, category, projectAreaOrDefault(addProjectArea, cfg))
	if err != nil {
		if errors.Is(err, fusion.ErrUnparseable) {
			os.Exit(outputError(ExitDataError, "%v", err))
		}
		os.Exit(outputError(ExitError, "%v", err))
	}

	entry, err := store.GetEntry(id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}
	authors, err := store.EntryAuthors(id)
	if err != nil {
		os.Exit(outputError(ExitError, "%v", err))
	}

	if humanOutput {
		if isNew {
			fmt.Println("Added:")
		} else {
			fmt.Println("Already present:")
		}
		printEntryHuman(entry, authors)
		return nil
	}

	resp := struct {
		Created bool `json:"created"`
		entryResponse
	}{Created: isNew, entryResponse: newEntryResponse(entry, authors)}
	return outputJSON(resp)
}

// citationFromPDF builds a citation line from a PDF's title line and
// embedded DOI. The DOI alone is enough for a registry lookup.
func citationFromPDF(path string) (string, error) {
	doi, err := pdftext.ExtractDOI(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	title, _ := pdftext.ExtractTitle(path)

	var parts []string
	if title != "" {
		parts = append(parts, title+".")
	}
	if doi != "" {
		parts = append(parts, "doi:"+doi)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no citation data found in %s", path)
	}
	return strings.Join(parts, " "), nil
}
