package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/source"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	addRecursive bool
	addIgnore    []string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add documents to the index",
	Long: `Stage one or more documents and index them for retrieval.

Each document is copied into the staging area, converted to text,
split into chunks, embedded and persisted. Supported formats: PDF,
DOCX, XLSX, plain text, Markdown, CSV, JSON, XML.

Examples:
  # Add individual files
  lrag add report.pdf notes.md

  # Add every supported file under a directory
  lrag add -r ./papers

  # Exclude patterns during recursive adds (gitignore syntax)
  lrag add -r ./papers --ignore "drafts/" --ignore "*.json"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "walk directories for supported documents")
	addCmd.Flags().StringSliceVar(&addIgnore, "ignore", nil, "additional ignore patterns for recursive adds")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	var sources []source.Source
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", arg, err)
		}

		if info.IsDir() {
			if !addRecursive {
				return fmt.Errorf("%s is a directory (use -r to add directories)", arg)
			}
			found, err := source.CollectFiles(arg, addIgnore)
			if err != nil {
				return err
			}
			log.Info("Collected documents", "path", arg, "count", len(found))
			for _, f := range found {
				sources = append(sources, f)
			}
			continue
		}

		src, err := source.NewFile(arg)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return fmt.Errorf("no supported documents found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := repo.AddDocuments(ctx, sources); err != nil {
		log.Warn("Some documents failed to submit", "error", err)
	}
	repo.WaitForIndexing()

	// Report final status per document.
	ready, failed := 0, 0
	for _, rec := range repo.SnapshotDocs() {
		switch rec.Status {
		case store.StatusReady:
			ready++
		case store.StatusFailed:
			failed++
			fmt.Printf("%s %s: %s\n", ui.Error.Render("✗"), rec.Name, rec.Error)
		}
	}
	fmt.Printf("%s %d document(s) ready, %d failed\n", ui.Success.Render("✓"), ready, failed)
	return nil
}
