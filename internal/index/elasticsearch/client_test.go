package elasticsearch

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"handbookrag/pkg/models"
)

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip-check",
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

func testClient(t *testing.T, index string) *Client {
	t.Helper()
	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     index,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestClient_EnsureReady(t *testing.T) {
	skipIfNoES(t)

	client := testClient(t, "handbook-rag-test-ready")
	ctx := context.Background()

	client.DeleteIndex(ctx)

	if err := client.EnsureReady(ctx, 4); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	// Idempotent for matching dimensions.
	if err := client.EnsureReady(ctx, 4); err != nil {
		t.Fatalf("EnsureReady() second call error = %v", err)
	}

	// Conflicting dimensions must fail fast.
	err := client.EnsureReady(ctx, 8)
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("EnsureReady() with conflicting dims error = %v, want ErrDimensionMismatch", err)
	}

	client.DeleteIndex(ctx)
}

func TestClient_UpsertAndQuery(t *testing.T) {
	skipIfNoES(t)

	client := testClient(t, "handbook-rag-test-query")
	ctx := context.Background()

	client.DeleteIndex(ctx)
	if err := client.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	records := []models.Record{
		{ChunkID: models.ChunkID("https://example.com/a", 0), Vector: []float32{1, 0},
			URL: "https://example.com/a", Title: "A", Text: "parallel"},
		{ChunkID: models.ChunkID("https://example.com/b", 0), Vector: []float32{0, 1},
			URL: "https://example.com/b", Title: "B", Text: "orthogonal"},
	}

	if err := client.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	// Upserting again must not duplicate.
	if err := client.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert() second call error = %v", err)
	}
	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	results, err := client.Query(ctx, []float32{1, 0}, 5, 0.9)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result above 0.9, got %d", len(results))
	}
	if results[0].Record.Title != "A" {
		t.Errorf("top result = %q, want A", results[0].Record.Title)
	}

	client.DeleteIndex(ctx)
}
