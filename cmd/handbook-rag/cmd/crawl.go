package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"handbookrag/internal/config"
	"handbookrag/internal/crawler"
	"handbookrag/internal/events"
	"handbookrag/internal/ingestion"
	"handbookrag/internal/normalizer"
	"handbookrag/internal/pipeline"
)

var (
	crawlURL    string
	crawlSource string
	noIngest    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl and index documentation",
	Long: `Crawl documentation from configured sources or a specific URL.

Examples:
  # Crawl all configured sources (crawl + ingest)
  handbook-rag crawl

  # Crawl a specific source by name
  handbook-rag crawl --source handbook

  # Crawl a specific URL directly
  handbook-rag crawl --url https://about.gitlab.com/handbook/

  # Crawl only (write documents to the store, no ingestion)
  handbook-rag crawl --url https://about.gitlab.com/handbook/ --no-ingest`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlURL, "url", "", "URL to crawl directly")
	crawlCmd.Flags().StringVar(&crawlSource, "source", "", "Source name from config to crawl")
	crawlCmd.Flags().BoolVar(&noIngest, "no-ingest", false, "Crawl to the document store only, skip ingestion")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("crawl command starting", "verbose", verbose, "no_ingest", noIngest)

	// Determine what to crawl
	var sources []config.Source

	if crawlURL != "" {
		sources = append(sources, config.Source{Name: "adhoc", URL: crawlURL})
	} else {
		if len(cfg.Sources) == 0 {
			return fmt.Errorf("no sources configured and no --url provided")
		}

		for _, source := range cfg.Sources {
			if crawlSource != "" && source.Name != crawlSource {
				continue
			}
			if source.URL != "" {
				sources = append(sources, source)
			}
		}

		if len(sources) == 0 {
			if crawlSource != "" {
				return fmt.Errorf("source %q not found in config", crawlSource)
			}
			return fmt.Errorf("no valid sources found in config")
		}
	}

	storeClient, err := newDocstore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := storeClient.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}

	norm := normalizer.New(normalizer.Config{
		MinTextLength: cfg.Normalizer.MinTextLength,
		SourceTypes:   pathRules(cfg.Normalizer.SourceTypes),
	})

	p := pipeline.New(crawler.Config{
		Delay:     cfg.Crawler.Delay,
		MaxPages:  cfg.Crawler.MaxPages,
		Timeout:   cfg.Crawler.Timeout,
		UserAgent: cfg.Crawler.UserAgent,
	}, norm, storeClient)

	if noIngest {
		return runCrawlOnly(ctx, cfg, p, sources)
	}
	return runCrawlWithIngest(ctx, cfg, p, storeClient, sources)
}

// pathRules converts config path rules into normalizer path rules.
func pathRules(rules []config.PathRule) []normalizer.PathRule {
	out := make([]normalizer.PathRule, len(rules))
	for i, rule := range rules {
		out[i] = normalizer.PathRule{Prefix: rule.Prefix, Type: rule.Type}
	}
	return out
}

// runCrawlOnly writes crawled documents to the store without ingestion.
func runCrawlOnly(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, sources []config.Source) error {
	results, err := p.CrawlAll(ctx, sources, cfg.Crawler.Workers, nil)
	if err != nil {
		return err
	}

	totalDocs := 0
	for _, result := range results {
		totalDocs += result.DocsStored
		fmt.Printf("Crawled: %s\n  Pages: %d, Docs: %d, Prefix: %s\n",
			result.SourceURL, result.PagesFetched, result.DocsStored, result.Prefix)
	}

	fmt.Printf("\nTotal: %d documents written to the store\n", totalDocs)
	fmt.Println("Run 'handbook-rag ingest --prefix <prefix>' to index these documents")
	return nil
}

// runCrawlWithIngest coordinates crawling and ingestion over a channel:
// each completed source is handed to the ingestion worker while the next
// source crawls.
func runCrawlWithIngest(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, storeClient ingestion.DocumentSource, sources []config.Source) error {
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

	crawlEvents := make(chan events.CrawlCompleteEvent)
	done := make(chan struct{})

	var totalChunks int
	var totalDuration time.Duration

	// Ingestion worker (consumer)
	go func() {
		defer close(done)
		for event := range crawlEvents {
			fmt.Printf("Ingesting: %s (%d docs)\n", event.Prefix, event.DocCount)

			result, err := engine.Ingest(ctx, event.Prefix)
			if err != nil {
				fmt.Printf("  Error: %v\n", err)
				continue
			}

			totalChunks += result.ChunksWritten
			totalDuration += result.Duration

			completed := events.IngestionCompleteEvent{
				Prefix:        result.Prefix,
				ChunksWritten: result.ChunksWritten,
				EmbedFailures: result.EmbedFailures,
				Duration:      result.Duration,
				Errors:        result.Errors,
			}
			slog.Info("ingestion complete", "prefix", completed.Prefix,
				"chunks", completed.ChunksWritten, "embed_failures", completed.EmbedFailures,
				"duration", completed.Duration)

			fmt.Printf("  Chunks written: %d, Embed failures: %d, Duration: %v\n",
				result.ChunksWritten, result.EmbedFailures, result.Duration)
			for _, e := range result.Errors {
				fmt.Printf("  Warning: %s\n", e)
			}
		}
	}()

	// Crawl sources (producer)
	results, crawlErr := p.CrawlAll(ctx, sources, cfg.Crawler.Workers, crawlEvents)

	close(crawlEvents)
	<-done

	if crawlErr != nil {
		return crawlErr
	}

	totalPages := 0
	for _, result := range results {
		totalPages += result.PagesFetched
	}
	fmt.Printf("\nTotal: %d pages crawled, %d chunks indexed in %v\n",
		totalPages, totalChunks, totalDuration)

	return nil
}
