package normalizer

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"handbookrag/pkg/models"
)

// DefaultSourceType is assigned when no path rule matches. Never an error.
const DefaultSourceType = "other"

// PathRule maps a URL path prefix to a source type label.
type PathRule struct {
	Prefix string
	Type   string
}

// Config holds normalizer configuration.
type Config struct {
	MinTextLength int // pages with less extracted text are dropped
	SourceTypes   []PathRule
}

// Normalizer turns a fetched page into a clean-text document.
type Normalizer struct {
	config Config
}

// New creates a new Normalizer with the given configuration.
func New(config Config) *Normalizer {
	if config.MinTextLength <= 0 {
		config.MinTextLength = 100
	}
	return &Normalizer{config: config}
}

// Normalize extracts a title and the main text content from a page.
// It returns nil (dropped, not an error) when the page has too little
// content to be worth indexing.
func (n *Normalizer) Normalize(page models.Page) *models.Document {
	body := page.Body
	title := ""

	if looksLikeHTML(body) {
		title = extractTitle(body)
		converted, err := htmltomarkdown.ConvertString(body)
		if err != nil {
			slog.Debug("markup conversion failed, dropping page", "url", page.URL, "error", err)
			return nil
		}
		body = converted
	}

	text := normalizeWhitespace(body)
	if len(text) < n.config.MinTextLength {
		slog.Debug("dropping near-empty page", "url", page.URL, "text_len", len(text))
		return nil
	}

	if title == "" {
		title = page.URL
	}

	return &models.Document{
		URL:        page.URL,
		Title:      title,
		SourceType: n.Classify(page.URL),
		Text:       text,
		FetchedAt:  page.FetchedAt,
	}
}

// Classify determines the source type of a URL by its path prefix.
// Unrecognized prefixes get the default classification.
func (n *Normalizer) Classify(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return DefaultSourceType
	}
	for _, rule := range n.config.SourceTypes {
		if strings.HasPrefix(parsed.Path, rule.Prefix) {
			return rule.Type
		}
	}
	return DefaultSourceType
}

// looksLikeHTML checks if content appears to be an HTML page.
func looksLikeHTML(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body") ||
		strings.HasPrefix(lower, "<")
}

// extractTitle returns the first <h1> text, falling back to <title>.
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var h1, title string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "h1":
				if h1 == "" {
					h1 = strings.TrimSpace(textContent(node))
				}
			case "title":
				if title == "" && node.FirstChild != nil {
					title = strings.TrimSpace(node.FirstChild.Data)
				}
			case "script", "style":
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if h1 != "" {
		return h1
	}
	return title
}

// textContent concatenates all text nodes under node.
func textContent(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

var (
	blankRuns = regexp.MustCompile(`\n{3,}`)
	spaceRuns = regexp.MustCompile(`[ \t]{2,}`)
)

// normalizeWhitespace trims each line, collapses space runs and limits
// consecutive blank lines to one.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = blankRuns.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}
