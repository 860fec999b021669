package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	statusWatch  bool
	statusPeriod time.Duration
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status and statistics",
	Long: `Display per-document statistics: status, chunk count, inferred
vector dimension and size on disk.

Examples:
  lrag status

  # Keep watching until interrupted
  lrag status --watch`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "poll for changes until interrupted")
	statusCmd.Flags().DurationVar(&statusPeriod, "period", time.Second, "poll interval for --watch")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	if !statusWatch {
		printStatus(repo.Store(), repo.SnapshotDocs())
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for docs := range repo.ObserveDocs(ctx, statusPeriod) {
		fmt.Println(ui.HorizontalRule(60))
		printStatus(repo.Store(), docs)
	}
	return nil
}

func printStatus(st *store.Local, docs []store.DocRecord) {
	if len(docs) == 0 {
		fmt.Println(ui.Dim.Render("No documents indexed."))
		return
	}

	totalChunks := 0
	var totalBytes int64
	for _, rec := range docs {
		line := fmt.Sprintf("%s  %s  %s",
			ui.DocID.Render(rec.DocID[:8]),
			ui.FormatStatus(string(rec.Status)),
			ui.DocName.Render(rec.Name))

		if rec.Status == store.StatusReady {
			if stats, err := st.DocStats(rec.DocID); err == nil {
				dim := int64(0)
				if bpv := stats.BytesPerVector(); bpv > 0 {
					dim = bpv / 4
				}
				line += ui.Dim.Render(fmt.Sprintf("  %d chunks, dim %d, %s",
					stats.ChunkCount, dim, formatBytes(stats.TotalBytes)))
				totalChunks += stats.ChunkCount
				totalBytes += stats.TotalBytes
			}
		}
		fmt.Println(line)
	}

	fmt.Println(ui.Dim.Render(fmt.Sprintf("%d document(s), %d chunks, %s on disk",
		len(docs), totalChunks, formatBytes(totalBytes))))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
