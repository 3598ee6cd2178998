// Package index defines the vector index contract shared by the
// ingestion (write) and retrieval (read) paths.
package index

import (
	"context"

	"handbookrag/pkg/models"
)

// Store is a persistent similarity index over embedding records.
//
// Upsert is keyed by Record.ChunkID: writing the same key twice keeps one
// record (last writer wins), which makes re-ingestion idempotent. Query
// returns at most k records, sorted by descending score, every score at
// or above minScore; ties keep insertion order. An empty result is not an
// error. Implementations must tolerate concurrent readers during writes.
type Store interface {
	// EnsureReady creates the backing collection/index if missing and
	// verifies its dimensionality against the configured embedding model.
	EnsureReady(ctx context.Context, dimensions int) error

	Upsert(ctx context.Context, records []models.Record) error

	Query(ctx context.Context, vector []float32, k int, minScore float64) ([]models.Scored, error)
}
