package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

var clearForce bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed documents",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	repo, err := buildRepository(cfg)
	if err != nil {
		return err
	}

	count := len(repo.SnapshotDocs())
	if count == 0 {
		fmt.Println(ui.Dim.Render("Nothing to clear."))
		return nil
	}

	if !clearForce {
		fmt.Printf("Remove all %d indexed document(s)? [y/N] ", count)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := repo.ClearAll(context.Background()); err != nil {
		return err
	}
	fmt.Printf("%s removed %d document(s)\n", ui.Success.Render("✓"), count)
	return nil
}
