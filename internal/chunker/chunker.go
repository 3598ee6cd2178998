// Package chunker splits normalized documents into overlapping fixed-size
// windows, the unit of embedding and retrieval.
package chunker

import (
	"fmt"

	"handbookrag/pkg/models"
)

// DefaultSize is the default window length in characters.
const DefaultSize = 1000

// DefaultOverlap is the default number of characters shared with the
// previous chunk.
const DefaultOverlap = 200

// Split cuts the document text into a deterministic sliding window:
// window length = size, stride = size - overlap. Every chunk except the
// first starts at the previous end minus overlap; the last chunk is
// truncated to the remaining text. A document shorter than size yields
// exactly one chunk.
//
// Windows are measured in characters (runes), never bytes: a boundary
// can never land inside a multi-byte encoding, so every chunk is valid
// UTF-8. Start and End are rune offsets into the parent text.
//
// Chunk identifiers derive from (URL, index) only, so re-ingesting a
// changed document updates the same identifier slots.
func Split(doc models.Document, size, overlap int) ([]models.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", size, models.ErrInvalidConfig)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap %d must be in [0, size %d): %w",
			overlap, size, models.ErrInvalidConfig)
	}
	if doc.Text == "" {
		return nil, nil
	}

	stride := size - overlap
	runes := []rune(doc.Text)
	chunks := make([]models.Chunk, 0, len(runes)/stride+1)

	for start, index := 0, 0; start < len(runes); start, index = start+stride, index+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			ID:          models.ChunkID(doc.URL, index),
			DocumentURL: doc.URL,
			Index:       index,
			Text:        string(runes[start:end]),
			Start:       start,
			End:         end,
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
