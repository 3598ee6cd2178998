// Package pipeline orchestrates the offline ingestion front half:
// crawl -> normalize -> document store. The embedding half lives in
// the ingestion package and is driven by crawl-complete events.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"handbookrag/internal/config"
	"handbookrag/internal/crawler"
	"handbookrag/internal/docstore"
	"handbookrag/internal/events"
	"handbookrag/internal/normalizer"
	"handbookrag/pkg/models"
)

// Pipeline crawls configured sources and persists normalized documents.
// All collaborators are injected at construction; the pipeline holds no
// process-wide state.
type Pipeline struct {
	crawlerConfig crawler.Config
	normalizer    *normalizer.Normalizer
	store         *docstore.Client
}

// New creates a new Pipeline.
func New(crawlerConfig crawler.Config, norm *normalizer.Normalizer, store *docstore.Client) *Pipeline {
	return &Pipeline{
		crawlerConfig: crawlerConfig,
		normalizer:    norm,
		store:         store,
	}
}

// CrawlResult summarizes one source's crawl.
type CrawlResult struct {
	Prefix       string
	SourceURL    string
	PagesFetched int
	DocsStored   int
	Errors       []string
}

// Crawl fetches one source, normalizes its pages and writes the surviving
// documents under a fresh store prefix.
func (p *Pipeline) Crawl(ctx context.Context, source config.Source) (*CrawlResult, error) {
	seed, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source URL %q: %w", source.URL, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	shortID := models.DocumentKey(fmt.Sprintf("%s-%d", source.URL, time.Now().UnixNano()))[:8]
	prefix := fmt.Sprintf("crawls/%s/%s-%s", seed.Host, timestamp, shortID)

	result := &CrawlResult{Prefix: prefix, SourceURL: source.URL}

	crawlerConfig := p.crawlerConfig
	crawlerConfig.AllowHosts = append(crawlerConfig.AllowHosts, source.AllowHosts...)

	pages, err := crawler.New(crawlerConfig).Crawl(ctx, source.URL)
	if err != nil && len(pages) == 0 {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.PagesFetched = len(pages)

	var urls []string
	for _, page := range pages {
		doc := p.normalizer.Normalize(page)
		if doc == nil {
			continue
		}
		if err := p.store.PutDocument(ctx, prefix, *doc); err != nil {
			slog.Error("failed to store document", "url", doc.URL, "error", err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		urls = append(urls, doc.URL)
		result.DocsStored++
	}

	manifest := docstore.CrawlManifest{
		SourceURL: source.URL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		PageCount: len(urls),
		URLs:      urls,
	}
	if err := p.store.PutManifest(ctx, prefix, manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	slog.Info("crawl complete", "source", source.URL, "prefix", prefix,
		"pages", result.PagesFetched, "docs", result.DocsStored)
	return result, nil
}

// CrawlAll crawls the given sources with a bounded worker pool. Politeness
// is enforced per host inside each crawl; the pool only bounds how many
// hosts are worked on at once. A non-nil sink receives one event per
// completed source. CrawlAll returns ErrCrawlExhausted when every source
// failed.
func (p *Pipeline) CrawlAll(ctx context.Context, sources []config.Source, workers int, sink chan<- events.CrawlCompleteEvent) ([]*CrawlResult, error) {
	if workers <= 0 {
		workers = 2
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	jobs := make(chan config.Source)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*CrawlResult
		failed  int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				result, err := p.Crawl(ctx, source)
				if err != nil {
					slog.Error("source crawl failed", "source", source.URL, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
				if sink != nil {
					sink <- events.CrawlCompleteEvent{
						Prefix:    result.Prefix,
						SourceURL: result.SourceURL,
						PageCount: result.PagesFetched,
						DocCount:  result.DocsStored,
						Timestamp: time.Now(),
					}
				}
			}
		}()
	}

	for _, source := range sources {
		jobs <- source
	}
	close(jobs)
	wg.Wait()

	if len(results) == 0 && failed > 0 {
		return nil, fmt.Errorf("%d sources failed: %w", failed, models.ErrCrawlExhausted)
	}
	return results, nil
}
