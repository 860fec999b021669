package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	askPlain bool
	askDoc   string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question grounded in your documents",
	Long: `Retrieve the most relevant document excerpts for the question,
assemble a context block and stream an answer from the local model.

When no indexed document is relevant the model is asked to answer
normally; when documents are referenced but none is ready, lrag
explains why instead of calling the model.

Examples:
  lrag ask "What does the contract say about termination?"

  # Restrict retrieval to one document
  lrag ask --doc 4f7c... "Summarize the introduction"

  # Plain text output (no markdown rendering)
  lrag ask -p "List the payment milestones"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askPlain, "plain", "p", false, "print the raw answer without markdown rendering")
	askCmd.Flags().StringVar(&askDoc, "doc", "", "restrict retrieval to a document id")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("question cannot be empty")
	}

	cfg := config.Get()
	_, rt, chat, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// An explicit doc flag behaves like a pre-locked conversation.
	if askDoc != "" {
		rt.LockTo(askDoc)
	}

	decision, err := rt.BuildPrompt(ctx, nil, question)
	if err != nil {
		return err
	}

	if decision.DirectReply != "" {
		fmt.Println(decision.DirectReply)
		return nil
	}

	contentCh, errCh := chat.Send(ctx, decision.Prompt)

	var answer strings.Builder
	for token := range contentCh {
		answer.WriteString(token)
		if askPlain {
			fmt.Print(token)
		}
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(answer.String()), chat.EOTString()))
	if askPlain {
		fmt.Println()
	} else {
		rendered, err := glamour.Render(text, "dark")
		if err != nil {
			fmt.Println(text)
		} else {
			fmt.Print(rendered)
		}
	}

	if decision.UsedContext && len(decision.Hits) > 0 {
		fmt.Println(ui.Dim.Render("Sources:"))
		for _, h := range decision.Hits {
			fmt.Printf("  %s %s\n",
				ui.Citation.Render(fmt.Sprintf("[%s §%d]", h.DocName, h.ChunkIndex+1)),
				ui.FormatScore(h.Score))
		}
	}
	return nil
}
