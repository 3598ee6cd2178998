package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"handbookrag/internal/assembler"
	"handbookrag/internal/generator"
)

var askK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documentation",
	Long: `Retrieve relevant chunks, assemble them into a context, and answer
the question with cited sources. Without a configured language model a
template answer quoting the retrieved context is produced instead.

Examples:
  handbook-rag ask "what is the release cadence?"
  handbook-rag ask "how are OKRs set?" --k 8`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntVar(&askK, "k", 0, "Maximum number of chunks to ground the answer on")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	question := args[0]
	cfg := GetConfig()

	ret, err := newRetriever(cfg)
	if err != nil {
		return err
	}

	gen, err := generator.New(generator.Config{
		Enabled:    cfg.Generator.Enabled,
		BaseURL:    cfg.Generator.BaseURL,
		SocketPath: cfg.Generator.SocketPath,
		APIKeyEnv:  cfg.Generator.APIKeyEnv,
		Model:      cfg.Generator.Model,
		MaxTokens:  cfg.Generator.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	result, err := ret.RetrieveWith(ctx, question, askK, -1)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	contextText, citations := assembler.Assemble(result, cfg.Retrieval.MaxContextLength)

	answer, err := gen.Answer(ctx, question, contextText, citations)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Println(answer)

	if len(citations) > 0 && gen.Name() == "live" {
		fmt.Println("\nSources:")
		for i, citation := range citations {
			fmt.Printf("  [%d] %s - %s (score %.2f)\n", i+1, citation.Title, citation.URL, citation.Score)
		}
	}

	return nil
}
