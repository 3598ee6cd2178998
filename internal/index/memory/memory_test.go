package memory

import (
	"errors"
	"testing"

	"handbookrag/pkg/models"
)

func record(id string, vector []float32, text string) models.Record {
	return models.Record{ChunkID: id, Vector: vector, Text: text}
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	records := []models.Record{
		record("a", []float32{1, 0}, "first"),
		record("b", []float32{0, 1}, "second"),
	}

	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d after repeated upsert, want 2", s.Len())
	}
}

func TestStore_UpsertOverwritesByChunkID(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	s.Upsert(ctx, []models.Record{record("a", []float32{1, 0}, "old text")})
	s.Upsert(ctx, []models.Record{record("a", []float32{1, 0}, "new text")})

	results, err := s.Query(ctx, []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Record.Text != "new text" {
		t.Errorf("Text = %q, want the overwritten value", results[0].Record.Text)
	}
}

func TestStore_QueryOrderingAndThreshold(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	// Cosine against the query (1, 0): a=1.0, b=0.0, c~0.707.
	s.Upsert(ctx, []models.Record{
		record("b", []float32{0, 1}, "orthogonal"),
		record("c", []float32{1, 1}, "diagonal"),
		record("a", []float32{1, 0}, "parallel"),
	})

	results, err := s.Query(ctx, []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].Record.ChunkID != "a" || results[1].Record.ChunkID != "c" {
		t.Errorf("order = [%s, %s], want [a, c]",
			results[0].Record.ChunkID, results[1].Record.ChunkID)
	}
	if results[0].Score < results[1].Score {
		t.Error("scores should be descending")
	}
}

func TestStore_QueryRespectsK(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	s.Upsert(ctx, []models.Record{
		record("a", []float32{1, 0}, ""),
		record("b", []float32{0.9, 0.1}, ""),
		record("c", []float32{0.8, 0.2}, ""),
	})

	results, err := s.Query(ctx, []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results with k=2, got %d", len(results))
	}
}

func TestStore_QueryTiesKeepInsertionOrder(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	// Identical vectors score identically; insertion order breaks the tie.
	s.Upsert(ctx, []models.Record{
		record("first", []float32{1, 0}, ""),
		record("second", []float32{1, 0}, ""),
	})

	results, err := s.Query(ctx, []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Record.ChunkID != "first" {
		t.Errorf("tie order = %s first, want insertion order", results[0].Record.ChunkID)
	}
}

func TestStore_QueryEmptyResultIsNotAnError(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	s.Upsert(ctx, []models.Record{record("a", []float32{0, 1}, "")})

	results, err := s.Query(ctx, []float32{1, 0}, 10, 0.99)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results above 0.99, got %d", len(results))
	}
}

func TestStore_DimensionChecks(t *testing.T) {
	s := New()
	ctx := t.Context()

	if err := s.EnsureReady(ctx, 2); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	if err := s.EnsureReady(ctx, 3); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("EnsureReady() with new dims error = %v, want ErrDimensionMismatch", err)
	}

	err := s.Upsert(ctx, []models.Record{record("a", []float32{1, 0, 0}, "")})
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Upsert() error = %v, want ErrDimensionMismatch", err)
	}

	_, err = s.Query(ctx, []float32{1, 0, 0}, 10, 0)
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Query() error = %v, want ErrDimensionMismatch", err)
	}
}
