// Package memory is a brute-force cosine similarity index. It backs unit
// tests and keyless demo runs; production setups use the Elasticsearch or
// Qdrant backends.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"handbookrag/pkg/models"
)

// Store keeps all records in memory and scans them on every query.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]int // chunk ID -> position in order
	order      []models.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]int)}
}

// EnsureReady fixes the store's dimensionality. Calling it again with a
// different value fails rather than silently mixing vector spaces.
func (s *Store) EnsureReady(_ context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive: %w", models.ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions != 0 && s.dimensions != dimensions {
		return fmt.Errorf("store has %d dimensions, requested %d: %w",
			s.dimensions, dimensions, models.ErrDimensionMismatch)
	}
	s.dimensions = dimensions
	return nil
}

// Upsert writes records keyed by chunk ID. Existing keys are overwritten
// in place, keeping their original insertion position.
func (s *Store) Upsert(_ context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		if s.dimensions != 0 && len(record.Vector) != s.dimensions {
			return fmt.Errorf("record %s has %d dimensions, store has %d: %w",
				record.ChunkID, len(record.Vector), s.dimensions, models.ErrDimensionMismatch)
		}
		if pos, ok := s.records[record.ChunkID]; ok {
			s.order[pos] = record
			continue
		}
		s.records[record.ChunkID] = len(s.order)
		s.order = append(s.order, record)
	}
	return nil
}

// Query scans all records and returns the top k above minScore, sorted
// descending; ties keep insertion order.
func (s *Store) Query(_ context.Context, vector []float32, k int, minScore float64) ([]models.Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimensions != 0 && len(vector) != s.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, store has %d: %w",
			len(vector), s.dimensions, models.ErrDimensionMismatch)
	}

	scored := make([]models.Scored, 0, len(s.order))
	for _, record := range s.order {
		score := cosine(record.Vector, vector)
		if score >= minScore {
			scored = append(scored, models.Scored{Record: record, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
