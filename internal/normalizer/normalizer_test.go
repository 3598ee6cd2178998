package normalizer

import (
	"strings"
	"testing"
	"time"

	"handbookrag/pkg/models"
)

func page(url, body string) models.Page {
	return models.Page{URL: url, Body: body, FetchedAt: time.Now()}
}

func TestNormalize_ExtractsTitleAndText(t *testing.T) {
	n := New(Config{MinTextLength: 10})

	doc := n.Normalize(page("https://example.com/handbook/values", `<html>
<head><title>Head Title</title></head>
<body><h1>Our Values</h1><p>Results matter. We measure impact, not activity, across the company.</p></body>
</html>`))

	if doc == nil {
		t.Fatal("Normalize() dropped a valid page")
	}
	if doc.Title != "Our Values" {
		t.Errorf("Title = %q, want first h1", doc.Title)
	}
	if !strings.Contains(doc.Text, "Results matter") {
		t.Errorf("Text should contain the body content, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "<p>") {
		t.Error("Text should not contain markup")
	}
	if doc.FetchedAt.IsZero() {
		t.Error("FetchedAt should carry over from the page")
	}
}

func TestNormalize_TitleFallsBackToTitleTag(t *testing.T) {
	n := New(Config{MinTextLength: 10})

	doc := n.Normalize(page("https://example.com/page", `<html>
<head><title>Only Title</title></head>
<body><p>Enough content here to clear the minimum length threshold easily.</p></body>
</html>`))

	if doc == nil {
		t.Fatal("Normalize() dropped a valid page")
	}
	if doc.Title != "Only Title" {
		t.Errorf("Title = %q, want %q", doc.Title, "Only Title")
	}
}

func TestNormalize_TitleFallsBackToURL(t *testing.T) {
	n := New(Config{MinTextLength: 10})

	doc := n.Normalize(page("https://example.com/bare",
		"Plain text document with no markup at all, long enough to keep."))

	if doc == nil {
		t.Fatal("Normalize() dropped a valid page")
	}
	if doc.Title != "https://example.com/bare" {
		t.Errorf("Title = %q, want the URL", doc.Title)
	}
}

func TestNormalize_DropsShortPages(t *testing.T) {
	n := New(Config{MinTextLength: 100})

	doc := n.Normalize(page("https://example.com/stub", "<html><body><p>tiny</p></body></html>"))
	if doc != nil {
		t.Errorf("expected short page to be dropped, got %+v", doc)
	}
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	n := New(Config{MinTextLength: 10})

	doc := n.Normalize(page("https://example.com/ws",
		"line one    with   runs\n\n\n\n\nline two\t\tafter blanks and some padding text"))

	if doc == nil {
		t.Fatal("Normalize() dropped a valid page")
	}
	if strings.Contains(doc.Text, "  ") {
		t.Errorf("space runs should collapse, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "\n\n\n") {
		t.Errorf("blank line runs should collapse, got %q", doc.Text)
	}
}

func TestClassify(t *testing.T) {
	n := New(Config{
		MinTextLength: 10,
		SourceTypes: []PathRule{
			{Prefix: "/handbook", Type: "handbook"},
			{Prefix: "/direction", Type: "direction"},
		},
	})

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/handbook/values", "handbook"},
		{"https://example.com/handbook", "handbook"},
		{"https://example.com/direction/ops", "direction"},
		{"https://example.com/blog/post", DefaultSourceType},
		{"https://example.com/", DefaultSourceType},
		{"://bad-url", DefaultSourceType},
	}

	for _, tt := range tests {
		if got := n.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"doctype", "<!DOCTYPE html><html></html>", true},
		{"html tag", "<html><body></body></html>", true},
		{"leading whitespace", "   <html>", true},
		{"markdown", "# Heading\n\nSome text", false},
		{"plain text", "just words", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHTML(tt.content); got != tt.want {
				t.Errorf("looksLikeHTML() = %v, want %v", got, tt.want)
			}
		})
	}
}
