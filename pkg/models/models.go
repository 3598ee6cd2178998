package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Page is a single fetched unit. Pages live only between the fetch and
// normalization stages and are never persisted.
type Page struct {
	URL         string
	Body        string
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// Document is a normalized page: markup stripped, whitespace collapsed.
// Documents are persisted to the document store so re-chunking and
// re-embedding do not require re-crawling.
type Document struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	Text       string    `json:"text"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Chunk is a contiguous slice of a document's text. Chunks overlap their
// predecessor by a configured amount; Start and End are rune offsets into
// the parent text.
type Chunk struct {
	ID          string
	DocumentURL string
	Index       int
	Text        string
	Start       int
	End         int
}

// Record is the persisted unit in the vector index, keyed by chunk ID.
type Record struct {
	ChunkID    string    `json:"chunk_id"`
	Vector     []float32 `json:"vector"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
}

// Scored is a record annotated with its similarity score for one query.
type Scored struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// RetrievalResult is an ordered (descending score) sequence of scored
// records, at most k long, every score at or above the query threshold.
type RetrievalResult []Scored

// Citation points a generated answer back at the chunk it was built from.
type Citation struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// ChunkID derives a stable chunk identifier from the source URL and the
// chunk's sequence index. It deliberately ignores the chunk text: when a
// document's content changes, re-ingestion updates the same identifier
// slots instead of accumulating duplicates. The result is a UUIDv5, which
// doubles as a valid point ID for every supported index backend.
func ChunkID(url string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", url, index))).String()
}

// DocumentKey creates a deterministic short key from a URL, used as the
// document store object name. First 16 hex chars of SHA-256.
func DocumentKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
