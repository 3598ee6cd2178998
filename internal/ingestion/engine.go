// Package ingestion turns persisted documents into embedding records:
// chunk, embed, upsert. One bad chunk never aborts a run; configuration
// errors do, before any I/O.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"handbookrag/internal/chunker"
	"handbookrag/internal/index"
	"handbookrag/pkg/models"
)

// DefaultBatchSize is the number of records written per upsert call.
const DefaultBatchSize = 16

// DocumentSource iterates persisted documents under a crawl prefix.
// Satisfied by the docstore client.
type DocumentSource interface {
	ListDocuments(ctx context.Context, prefix string) ([]string, error)
	GetDocument(ctx context.Context, prefix, key string) (*models.Document, error)
}

// Embedder computes a fixed-dimensionality vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// refresher is implemented by backends that buffer writes until an
// explicit refresh (Elasticsearch).
type refresher interface {
	Refresh(ctx context.Context) error
}

// Config holds ingestion engine configuration.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Result holds ingestion execution results. EmbedFailures counts chunks
// skipped because the embedding model failed; a non-zero count with zero
// chunks written signals a systemic problem (model outage) rather than
// bad input.
type Result struct {
	Prefix        string
	DocsProcessed int
	ChunksWritten int
	EmbedFailures int
	Errors        []string
	Duration      time.Duration
}

// Engine reads documents from the store, chunks and embeds them, and
// upserts records into the vector index.
type Engine struct {
	source   DocumentSource
	embedder Embedder
	store    index.Store
	config   Config
}

// New creates a new ingestion engine. Chunking parameters are validated
// here so a bad configuration fails before any document is read.
func New(source DocumentSource, embedder Embedder, store index.Store, config Config) (*Engine, error) {
	if config.ChunkSize <= 0 {
		config.ChunkSize = chunker.DefaultSize
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = chunker.DefaultOverlap
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, size %d): %w",
			config.ChunkOverlap, config.ChunkSize, models.ErrInvalidConfig)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	return &Engine{
		source:   source,
		embedder: embedder,
		store:    store,
		config:   config,
	}, nil
}

// Ingest processes all documents under a crawl prefix. Re-running over
// unchanged input writes identical records (upsert by chunk ID), so an
// interrupted run can simply be repeated.
func (e *Engine) Ingest(ctx context.Context, prefix string) (*Result, error) {
	start := time.Now()
	result := &Result{Prefix: prefix}

	if err := e.store.EnsureReady(ctx, e.embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("index not ready: %w", err)
	}

	keys, err := e.source.ListDocuments(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	slog.Info("starting ingestion", "prefix", prefix, "documents", len(keys))

	for _, key := range keys {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "cancelled: "+ctx.Err().Error())
			break
		}

		doc, err := e.source.GetDocument(ctx, prefix, key)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		written, failed, err := e.ingestDocument(ctx, *doc)
		result.ChunksWritten += written
		result.EmbedFailures += failed
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.DocsProcessed++
	}

	if r, ok := e.store.(refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			slog.Warn("index refresh failed", "error", err)
		}
	}

	result.Duration = time.Since(start)
	slog.Info("ingestion complete",
		"prefix", prefix,
		"docs", result.DocsProcessed,
		"chunks_written", result.ChunksWritten,
		"embed_failures", result.EmbedFailures,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// IngestDocuments runs the chunk-embed-upsert flow over documents held in
// memory, bypassing the document store. Used by the single-pass pipeline.
func (e *Engine) IngestDocuments(ctx context.Context, docs []models.Document) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if err := e.store.EnsureReady(ctx, e.embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("index not ready: %w", err)
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "cancelled: "+ctx.Err().Error())
			break
		}
		written, failed, err := e.ingestDocument(ctx, doc)
		result.ChunksWritten += written
		result.EmbedFailures += failed
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.DocsProcessed++
	}

	if r, ok := e.store.(refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			slog.Warn("index refresh failed", "error", err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// ingestDocument chunks one document and writes its records in batches.
// A chunk whose embedding fails is logged, counted and skipped.
func (e *Engine) ingestDocument(ctx context.Context, doc models.Document) (written, failed int, err error) {
	chunks, err := chunker.Split(doc, e.config.ChunkSize, e.config.ChunkOverlap)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to chunk %s: %w", doc.URL, err)
	}

	batch := make([]models.Record, 0, e.config.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.store.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert failed for %s: %w", doc.URL, err)
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, chunk := range chunks {
		vector, err := e.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			slog.Warn("embedding failed, skipping chunk",
				"url", doc.URL, "chunk_index", chunk.Index, "error", err)
			failed++
			continue
		}

		batch = append(batch, models.Record{
			ChunkID:    chunk.ID,
			Vector:     vector,
			URL:        doc.URL,
			Title:      doc.Title,
			SourceType: doc.SourceType,
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
		})

		if len(batch) >= e.config.BatchSize {
			if err := flush(); err != nil {
				return written, failed, err
			}
		}
	}

	if err := flush(); err != nil {
		return written, failed, err
	}
	return written, failed, nil
}
