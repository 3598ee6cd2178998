package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"handbookrag/internal/ingestion"
)

var ingestPrefix string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents from the store into the vector index",
	Long: `Ingest previously crawled documents into the vector index.

Use this command to re-run ingestion on existing crawled content, for
example after changing chunking parameters, or to index crawls that
were created with --no-ingest. Re-running over unchanged input is
idempotent.

Examples:
  # Ingest a specific crawl by prefix
  handbook-rag ingest --prefix crawls/about.gitlab.com/2026-08-24T10-00-00-abc123`,
	RunE: runIngestCmd,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestPrefix, "prefix", "", "Document store prefix to ingest (required)")
	ingestCmd.MarkFlagRequired("prefix")
}

func runIngestCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("ingest command starting", "prefix", ingestPrefix)

	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("storage not configured - check config file")
	}

	storeClient, err := newDocstore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embeddings client: %w", err)
	}

	store, err := newIndexStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create index client: %w", err)
	}

	engine, err := ingestion.New(storeClient, embedder, store, ingestion.Config{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
	})
	if err != nil {
		return fmt.Errorf("failed to create ingestion engine: %w", err)
	}

	fmt.Printf("Ingesting: %s\n", ingestPrefix)

	result, err := engine.Ingest(ctx, ingestPrefix)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Docs processed: %d\n", result.DocsProcessed)
	fmt.Printf("  Chunks written: %d\n", result.ChunksWritten)
	fmt.Printf("  Embed failures: %d\n", result.EmbedFailures)
	fmt.Printf("  Duration: %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
