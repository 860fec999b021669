package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/ui"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <doc-id>...",
	Short: "Remove documents from the index",
	Long: `Delete one or more documents by id. Prefixes are accepted as long
as they are unambiguous.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	docs := repo.SnapshotDocs()
	for _, arg := range args {
		id, err := resolveDocID(docs, arg)
		if err != nil {
			return err
		}
		if err := repo.RemoveDocument(context.Background(), id); err != nil {
			return fmt.Errorf("removing %s: %w", id, err)
		}
		fmt.Printf("%s removed %s\n", ui.Success.Render("✓"), ui.DocID.Render(id))
	}
	return nil
}

// resolveDocID expands an id prefix against the known documents.
func resolveDocID(docs []store.DocRecord, prefix string) (string, error) {
	var match string
	for _, rec := range docs {
		if !strings.HasPrefix(rec.DocID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("ambiguous document id prefix: %s", prefix)
		}
		match = rec.DocID
	}
	if match == "" {
		return "", fmt.Errorf("no document matches id: %s", prefix)
	}
	return match, nil
}
