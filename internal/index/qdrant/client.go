// Package qdrant implements the vector index on a Qdrant collection with
// cosine distance, over the gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"handbookrag/pkg/models"
)

// Config holds Qdrant connection configuration.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
}

// Client wraps the Qdrant gRPC client with chunk-index operations.
type Client struct {
	qd         *qdrant.Client
	collection string
}

// New creates a new Qdrant-backed store.
func New(config Config) (*Client, error) {
	if config.Port == 0 {
		config.Port = 6334
	}

	opts := []grpc.DialOption{}
	if !config.UseTLS {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	qd, err := qdrant.NewClient(&qdrant.Config{
		Host:        config.Host,
		Port:        config.Port,
		APIKey:      config.APIKey,
		UseTLS:      config.UseTLS,
		GrpcOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{qd: qd, collection: config.Collection}, nil
}

// EnsureReady creates the collection with cosine distance if missing, or
// verifies an existing collection's dimensionality.
func (c *Client) EnsureReady(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive: %w", models.ErrInvalidConfig)
	}

	info, err := c.qd.GetCollectionInfo(ctx, c.collection)
	if err == nil && info != nil {
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != dimensions {
			return fmt.Errorf("collection %s has %d dimensions, configured %d: %w",
				c.collection, size, dimensions, models.ErrDimensionMismatch)
		}
		return nil
	}

	err = c.qd.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.collection, err)
	}
	return nil
}

// Upsert writes records as points keyed by their chunk ID (a UUID), so
// re-ingestion overwrites in place.
func (c *Client) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, record := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(record.ChunkID),
			Vectors: qdrant.NewVectors(record.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"url":         record.URL,
				"title":       record.Title,
				"source_type": record.SourceType,
				"chunk_index": record.ChunkIndex,
				"text":        record.Text,
			}),
		}
	}

	_, err := c.qd.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query returns the top k records with cosine score at or above minScore.
// Qdrant applies the threshold and descending sort natively.
func (c *Client) Query(ctx context.Context, vector []float32, k int, minScore float64) ([]models.Scored, error) {
	limit := uint64(k)
	threshold := float32(minScore)

	points, err := c.qd.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	scored := make([]models.Scored, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		scored = append(scored, models.Scored{
			Record: models.Record{
				ChunkID:    point.GetId().GetUuid(),
				URL:        payload["url"].GetStringValue(),
				Title:      payload["title"].GetStringValue(),
				SourceType: payload["source_type"].GetStringValue(),
				ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
			},
			Score: float64(point.GetScore()),
		})
	}
	return scored, nil
}

// DeleteCollection drops the collection (for testing/cleanup).
func (c *Client) DeleteCollection(ctx context.Context) error {
	return c.qd.DeleteCollection(ctx, c.collection)
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.qd.Close()
}
