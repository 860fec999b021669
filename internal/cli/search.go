package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	searchTopK      int
	searchThreshold float64
	searchDoc       string
	searchFullText  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show raw retrieval results for a query",
	Long: `Embed the query and rank every indexed chunk by cosine similarity,
printing the top matches without invoking the language model.

Examples:
  lrag search "termination clause"

  # More results, lower score floor
  lrag search "payment terms" --top-k 15 --threshold 0.01

  # Search inside one document
  lrag search "conclusion" --doc 4f7c...`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum results (default from config)")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "minimum similarity score")
	searchCmd.Flags().StringVar(&searchDoc, "doc", "", "restrict to a document id")
	searchCmd.Flags().BoolVar(&searchFullText, "full", false, "print full chunk text instead of a preview")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hits, err := repo.Retrieve(ctx, args[0], searchTopK, searchThreshold, searchDoc)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println(ui.Dim.Render("No matching chunks found."))
		return nil
	}

	for i, h := range hits {
		fmt.Printf("%s %s %s\n",
			ui.ResultHeader.Render(fmt.Sprintf("%d.", i+1)),
			ui.DocName.Render(fmt.Sprintf("%s §%d", h.DocName, h.ChunkIndex+1)),
			ui.FormatScore(h.Score))

		text := h.Text
		if !searchFullText {
			text = preview(text, 240)
		}
		fmt.Println(ui.ResultContent.Render(text))
		fmt.Println()
	}
	return nil
}

// preview returns the first max characters of s on one line.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], ' ')
	if cut <= 0 {
		cut = max
	}
	return s[:cut] + "…"
}
