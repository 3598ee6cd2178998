package generator

import (
	"context"
	"fmt"
	"strings"

	"handbookrag/pkg/models"
)

// previewLen bounds how much retrieved context the fallback quotes back.
const previewLen = 500

// Fallback produces a template answer from the retrieved context when no
// live model is configured. It never fails.
type Fallback struct{}

// NewFallback creates a fallback generator.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name identifies the implementation.
func (f *Fallback) Name() string { return "fallback" }

// Answer quotes a preview of the retrieved context and lists the sources.
func (f *Fallback) Answer(_ context.Context, question, contextText string, citations []models.Citation) (string, error) {
	var sb strings.Builder

	if contextText == "" {
		fmt.Fprintf(&sb, "No indexed documentation matched the question %q.\n", question)
		sb.WriteString("Try rephrasing, or check that ingestion has been run.")
		return sb.String(), nil
	}

	preview := contextText
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}

	fmt.Fprintf(&sb, "Found documentation relevant to %q:\n\n%s\n", question, preview)

	if len(citations) > 0 {
		sb.WriteString("\nSources:\n")
		for i, citation := range citations {
			fmt.Fprintf(&sb, "  [%d] %s - %s (score %.2f)\n",
				i+1, citation.Title, citation.URL, citation.Score)
		}
	}

	sb.WriteString("\nNote: running without a language model; configure one for synthesized answers.")
	return sb.String(), nil
}
