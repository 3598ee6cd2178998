// Package elasticsearch implements the vector index on an Elasticsearch
// dense_vector field with cosine similarity.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"handbookrag/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client wraps the Elasticsearch client with chunk-index operations.
//
// Scores are Elasticsearch's cosine scores, normalized to [0, 1] as
// (1 + cosine) / 2. The retrieval threshold is applied in that space,
// consistently for every query against this backend.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch-backed store.
func New(config Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	return &Client{es: es, index: config.Index}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping is the chunk record mapping; the vector dimensionality is
// filled in from the configured embedding model.
const indexMapping = `{
	"mappings": {
		"properties": {
			"chunk_id": { "type": "keyword" },
			"url": { "type": "keyword" },
			"title": { "type": "text" },
			"source_type": { "type": "keyword" },
			"chunk_index": { "type": "integer" },
			"text": { "type": "text" },
			"vector": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`

// EnsureReady creates the index with the given dimensionality, or checks
// an existing index against it. A dimensionality conflict fails fast: it
// means the configured embedding model does not match the ingested data.
func (c *Client) EnsureReady(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive: %w", models.ErrInvalidConfig)
	}

	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return c.checkDimensions(ctx, dimensions)
	}

	body := fmt.Sprintf(indexMapping, dimensions)
	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(body))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// checkDimensions compares an existing index's vector mapping with the
// configured dimensionality.
func (c *Client) checkDimensions(ctx context.Context, dimensions int) error {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(c.index),
	)
	if err != nil {
		return fmt.Errorf("failed to get mapping: %w", err)
	}
	defer res.Body.Close()

	var mapping map[string]struct {
		Mappings struct {
			Properties struct {
				Vector struct {
					Dims int `json:"dims"`
				} `json:"vector"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mapping); err != nil {
		return fmt.Errorf("failed to decode mapping: %w", err)
	}

	for _, idx := range mapping {
		if dims := idx.Mappings.Properties.Vector.Dims; dims != 0 && dims != dimensions {
			return fmt.Errorf("index %s has %d dimensions, configured %d: %w",
				c.index, dims, dimensions, models.ErrDimensionMismatch)
		}
	}
	return nil
}

// Upsert writes records keyed by chunk ID. Indexing with an explicit
// document ID is an upsert in Elasticsearch, so re-ingestion overwrites
// instead of duplicating.
func (c *Client) Upsert(ctx context.Context, records []models.Record) error {
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", record.ChunkID, err)
		}

		res, err := c.es.Index(
			c.index,
			bytes.NewReader(data),
			c.es.Index.WithContext(ctx),
			c.es.Index.WithDocumentID(record.ChunkID),
		)
		if err != nil {
			return fmt.Errorf("failed to index record %s: %w", record.ChunkID, err)
		}
		if res.IsError() {
			res.Body.Close()
			return fmt.Errorf("error indexing record %s (status %d): %s",
				record.ChunkID, res.StatusCode, res.String())
		}
		res.Body.Close()
	}
	return nil
}

// Refresh forces an index refresh so writes become searchable immediately.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents the ES knn search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64       `json:"_score"`
			Source models.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a knn search and returns the top k records scoring at or
// above minScore, sorted descending.
func (c *Client) Query(ctx context.Context, vector []float32, k int, minScore float64) ([]models.Scored, error) {
	numCandidates := k * 4
	if numCandidates < 100 {
		numCandidates = 100
	}

	searchQuery := map[string]any{
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
		},
		"min_score": minScore,
		"size":      k,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scored := make([]models.Scored, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		if hit.Score < minScore {
			continue
		}
		scored = append(scored, models.Scored{Record: hit.Source, Score: hit.Score})
	}
	return scored, nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}
