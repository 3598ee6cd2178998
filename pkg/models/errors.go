package models

import "errors"

// Domain errors shared across the pipeline. Callers match them with
// errors.Is after unwrapping.
var (
	// ErrInvalidConfig marks configuration that must fail fast before any
	// I/O, e.g. chunk overlap >= chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCrawlExhausted is returned when every seed of a crawl run failed
	// to produce a single page.
	ErrCrawlExhausted = errors.New("all crawl seeds failed")

	// ErrDimensionMismatch is returned when an embedding does not match
	// the dimensionality the index was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRetrievalTimeout is returned when a query did not complete within
	// the configured deadline. Partial results are never returned.
	ErrRetrievalTimeout = errors.New("retrieval timed out")
)
