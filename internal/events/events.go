package events

import "time"

// CrawlCompleteEvent is sent when the crawler finishes writing a source's
// documents to the document store.
type CrawlCompleteEvent struct {
	Prefix    string // document store prefix, e.g. "crawls/about.gitlab.com/2026-08-24T10-00-00-abc123"
	SourceURL string // seed URL that was crawled
	PageCount int
	DocCount  int
	Timestamp time.Time
}

// IngestionCompleteEvent is sent when ingestion finishes indexing a prefix.
type IngestionCompleteEvent struct {
	Prefix        string
	ChunksWritten int
	EmbedFailures int
	Duration      time.Duration
	Errors        []string
}
