// Package assembler formats retrieved chunks into a bounded prompt
// context with citation markers.
package assembler

import (
	"fmt"
	"strings"

	"handbookrag/pkg/models"
)

// DefaultMaxContextLength bounds the assembled context in characters.
const DefaultMaxContextLength = 6000

// Assemble concatenates retrieved chunk texts in descending score order,
// each prefixed with a citation marker, staying within maxLen. Chunks are
// dropped whole, lowest score first; a chunk is never split across the
// truncation boundary. The returned citations parallel the included
// chunks, in the same order.
func Assemble(result models.RetrievalResult, maxLen int) (string, []models.Citation) {
	if maxLen <= 0 {
		maxLen = DefaultMaxContextLength
	}
	if len(result) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var citations []models.Citation

	for i, scored := range result {
		block := fmt.Sprintf("[%d] %s (%s)\n%s", len(citations)+1,
			scored.Record.Title, scored.Record.URL, scored.Record.Text)
		if i > 0 {
			block = "\n\n" + block
		}

		if sb.Len()+len(block) > maxLen {
			// Results arrive sorted descending, so everything after the
			// first overflow scores lower and is dropped too.
			break
		}

		sb.WriteString(block)
		citations = append(citations, models.Citation{
			Title: scored.Record.Title,
			URL:   scored.Record.URL,
			Score: scored.Score,
		})
	}

	return sb.String(), citations
}
