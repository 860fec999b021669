package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/ui"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	st, err := store.NewLocal(cfg.Storage.Root)
	if err != nil {
		return err
	}

	docs := st.ListDocs()
	if len(docs) == 0 {
		fmt.Println(ui.Dim.Render("No documents indexed. Use 'lrag add' to index some."))
		return nil
	}

	for _, rec := range docs {
		created := time.UnixMilli(rec.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s  %s  %s\n",
			ui.DocID.Render(rec.DocID[:8]),
			ui.FormatStatus(string(rec.Status)),
			ui.DocName.Render(rec.Name),
			ui.Dim.Render(created))
		if rec.Status == store.StatusFailed && rec.Error != "" {
			fmt.Printf("          %s\n", ui.Error.Render(rec.Error))
		}
	}
	return nil
}
