package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"unicode/utf8"

	"handbookrag/pkg/models"
)

// Config holds embeddings client configuration. Exactly one of BaseURL
// and SocketPath must be set.
type Config struct {
	BaseURL    string // OpenAI-compatible API base, e.g. "https://api.openai.com/v1"
	SocketPath string // Unix socket for a local model runner
	APIKeyEnv  string // environment variable holding the bearer token
	Model      string
	Dimensions int // expected vector dimensionality; 0 disables the check
}

// Client calls an OpenAI-compatible /embeddings endpoint. The same client
// must be used at ingestion and query time: the configured dimensionality
// is the compatibility contract between the two paths.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions int
}

// New creates a new embeddings client.
func New(config Config) (*Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("embeddings model is required: %w", models.ErrInvalidConfig)
	}

	client := &Client{
		model:      config.Model,
		dimensions: config.Dimensions,
	}

	switch {
	case config.SocketPath != "":
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", config.SocketPath)
			},
		}
		client.httpClient = &http.Client{Transport: transport}
		client.endpoint = "http://localhost/v1/embeddings"
	case config.BaseURL != "":
		client.httpClient = &http.Client{}
		client.endpoint = config.BaseURL + "/embeddings"
		if config.APIKeyEnv != "" {
			client.apiKey = os.Getenv(config.APIKeyEnv)
		}
	default:
		return nil, fmt.Errorf("either base_url or socket_path is required: %w", models.ErrInvalidConfig)
	}

	return client, nil
}

// embeddingRequest is the request payload for the embeddings API.
type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embeddingResponse is the response from the embeddings API.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// MaxInputChars limits input to stay within the model context window.
const MaxInputChars = 20000

// Embed generates an embedding vector for the given text. Text exceeding
// MaxInputChars is truncated from the end, backed off to a rune boundary
// so the payload stays valid UTF-8. A vector whose dimensionality does
// not match the configured contract is rejected, never returned.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > MaxInputChars {
		cut := MaxInputChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vector := embResp.Data[0].Embedding
	if c.dimensions > 0 && len(vector) != c.dimensions {
		return nil, fmt.Errorf("model %s returned %d dimensions, configured %d: %w",
			c.model, len(vector), c.dimensions, models.ErrDimensionMismatch)
	}

	slog.Debug("generated embedding", "model", c.model, "input_len", len(text), "dims", len(vector))
	return vector, nil
}

// Dimensions returns the configured embedding dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// ModelDimensions returns the known dimensionality for common models, or
// 0 when the model is unknown and dimensions must be configured.
func ModelDimensions(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "sentence-transformers/all-MiniLM-L6-v2":
		return 384
	default:
		return 0
	}
}
