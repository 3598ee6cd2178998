// Package retriever is the read path: embed a query, search the vector
// index, return scored chunks with source metadata.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handbookrag/internal/index"
	"handbookrag/pkg/models"
)

// Embedder computes a fixed-dimensionality vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Config holds retrieval policy. K and MinScore are operational defaults;
// RetrieveWith allows per-request overrides.
type Config struct {
	K        int
	MinScore float64
	Timeout  time.Duration
}

// Retriever answers similarity queries against the index. It is stateless
// and safe for arbitrary concurrent use.
type Retriever struct {
	embedder Embedder
	store    index.Store
	config   Config
}

// New creates a new Retriever.
func New(embedder Embedder, store index.Store, config Config) (*Retriever, error) {
	if config.K <= 0 {
		config.K = 5
	}
	if config.MinScore < 0 || config.MinScore > 1 {
		return nil, fmt.Errorf("min score %v must be in [0, 1]: %w",
			config.MinScore, models.ErrInvalidConfig)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Retriever{embedder: embedder, store: store, config: config}, nil
}

// Retrieve runs a query with the configured defaults.
func (r *Retriever) Retrieve(ctx context.Context, query string) (models.RetrievalResult, error) {
	return r.RetrieveWith(ctx, query, r.config.K, r.config.MinScore)
}

// RetrieveWith runs a query with explicit k and minScore; non-positive k
// and negative minScore fall back to the configured defaults. It returns
// an empty result (not an error) when nothing clears the threshold, and
// ErrRetrievalTimeout when the deadline expires; a partial result is
// never returned. The query is embedded with the same model as ingestion;
// a dimensionality mismatch fails fast rather than producing garbage
// scores.
func (r *Retriever) RetrieveWith(ctx context.Context, query string, k int, minScore float64) (models.RetrievalResult, error) {
	if k <= 0 {
		k = r.config.K
	}
	if minScore < 0 {
		minScore = r.config.MinScore
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding query: %w", models.ErrRetrievalTimeout)
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if dims := r.embedder.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(vector), dims, models.ErrDimensionMismatch)
	}

	scored, err := r.store.Query(ctx, vector, k, minScore)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("searching index: %w", models.ErrRetrievalTimeout)
		}
		return nil, fmt.Errorf("index query failed: %w", err)
	}

	return models.RetrievalResult(scored), nil
}
