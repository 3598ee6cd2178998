package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	queryK        int
	queryMinScore float64
	queryFormat   string
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve chunks matching a query",
	Long: `Embed a query and retrieve the most similar indexed chunks.

Examples:
  # Basic query
  handbook-rag query "how do we run retrospectives"

  # More results, lower threshold
  handbook-rag query "iteration" --k 10 --min-score 0.5

  # JSON output for scripting
  handbook-rag query "values" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVar(&queryK, "k", 0, "Maximum number of results (default from config)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", -1, "Minimum similarity score in [0, 1] (default from config)")
	queryCmd.Flags().StringVar(&queryFormat, "format", "text", "Output format: text or json")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	ret, err := newRetriever(cfg)
	if err != nil {
		return err
	}

	result, err := ret.RetrieveWith(ctx, query, queryK, queryMinScore)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(result) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if queryFormat == "json" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(result))
	for i, scored := range result {
		fmt.Printf("─── Result %d (score %.3f) ───\n", i+1, scored.Score)
		fmt.Printf("Title:  %s\n", scored.Record.Title)
		fmt.Printf("URL:    %s\n", scored.Record.URL)
		fmt.Printf("Source: %s, chunk %d\n", scored.Record.SourceType, scored.Record.ChunkIndex)

		text := scored.Record.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Printf("Text:\n%s\n\n", text)
	}

	return nil
}
