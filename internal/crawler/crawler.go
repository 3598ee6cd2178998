package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/queue"

	"handbookrag/pkg/models"
)

// excludedExtensions matches URL paths that are never worth fetching:
// binaries, media and style assets.
var excludedExtensions = regexp.MustCompile(
	`(?i)\.(png|jpe?g|gif|svg|ico|webp|css|js|pdf|docx?|xlsx?|pptx?|zip|tar|gz|tgz|mp[34]|webm|woff2?)$`)

// Config holds crawler configuration.
type Config struct {
	Delay      time.Duration // minimum gap between requests to the same host
	MaxPages   int           // fetch budget per seed
	Timeout    time.Duration
	UserAgent  string
	AllowHosts []string // hostnames (no port) allowed in addition to each seed's own
}

// Crawler fetches pages breadth-first from a seed URL, staying on the
// seed's host (plus the configured allow-list) and respecting a per-host
// politeness delay.
type Crawler struct {
	config Config
}

// New creates a new Crawler with the given configuration.
func New(config Config) *Crawler {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "handbook-rag/1.0"
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}
	return &Crawler{config: config}
}

// Crawl fetches pages starting at seedURL until the frontier is empty or
// MaxPages pages have been fetched. A single page failure is logged and
// skipped; Crawl only returns an error when the seed produced no pages at
// all, or when the context was cancelled (partial results are returned in
// that case alongside ctx.Err()).
func (c *Crawler) Crawl(ctx context.Context, seedURL string) ([]models.Page, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed URL %q: %w", seedURL, err)
	}

	// AllowedDomains matches hostnames without ports.
	hosts := append([]string{seed.Hostname()}, c.config.AllowHosts...)

	collector := colly.NewCollector(
		colly.UserAgent(c.config.UserAgent),
		colly.AllowedDomains(hosts...),
		colly.DisallowedURLFilters(excludedExtensions),
	)
	collector.SetRequestTimeout(c.config.Timeout)

	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       c.config.Delay,
		Parallelism: 1,
	})

	// Single consumer over a FIFO queue gives breadth-first order from the
	// seed, with colly handling visited-URL dedupe.
	frontier, err := queue.New(1, &queue.InMemoryQueueStorage{MaxSize: 100000})
	if err != nil {
		return nil, fmt.Errorf("failed to create frontier: %w", err)
	}

	var (
		mu       sync.Mutex
		pages    []models.Page
		failures int
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		mu.Lock()
		budgetSpent := len(pages) >= c.config.MaxPages
		mu.Unlock()
		if budgetSpent {
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		if len(pages) >= c.config.MaxPages {
			return
		}
		pages = append(pages, models.Page{
			URL:         r.Request.URL.String(),
			Body:        string(r.Body),
			ContentType: r.Headers.Get("Content-Type"),
			StatusCode:  r.StatusCode,
			FetchedAt:   time.Now(),
		})
		slog.Debug("fetched page", "url", r.Request.URL.String(), "size", len(r.Body))
	})

	allowed := make(map[string]bool, len(c.config.AllowHosts))
	for _, host := range c.config.AllowHosts {
		allowed[host] = true
	}

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		absolute := e.Request.AbsoluteURL(e.Attr("href"))
		if absolute == "" {
			return
		}
		link, err := url.Parse(absolute)
		if err != nil {
			return
		}
		// Seed comparison includes the port; AllowedDomains alone cannot
		// tell two servers on the same hostname apart.
		if link.Host != seed.Host && !allowed[link.Hostname()] {
			return
		}
		link.Fragment = ""
		frontier.AddURL(link.String())
	})

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		failures++
		mu.Unlock()
		slog.Debug("page fetch failed (skipping)", "url", r.Request.URL.String(),
			"status", r.StatusCode, "error", err)
	})

	slog.Debug("starting crawl", "seed", seedURL, "max_pages", c.config.MaxPages)

	if err := frontier.AddURL(seedURL); err != nil {
		return nil, fmt.Errorf("failed to enqueue seed: %w", err)
	}
	if err := frontier.Run(collector); err != nil {
		return nil, fmt.Errorf("frontier run failed: %w", err)
	}
	collector.Wait()

	if ctx.Err() != nil {
		slog.Info("crawl cancelled", "seed", seedURL, "pages_fetched", len(pages))
		return pages, ctx.Err()
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("seed %s produced no pages (%d fetch errors)", seedURL, failures)
	}

	slog.Debug("crawl complete", "seed", seedURL, "pages", len(pages), "failures", failures)
	return pages, nil
}
