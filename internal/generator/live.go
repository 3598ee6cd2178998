package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"handbookrag/pkg/models"
)

const systemPrompt = `You are a helpful assistant answering questions about a
documentation corpus. Answer from the provided context only. Cite the numbered
sources you used, e.g. [1]. If the context does not contain the answer, say so
and point the user at the cited pages instead of guessing.`

// Live answers questions through an OpenAI-compatible chat completions
// endpoint.
type Live struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
}

// NewLive creates a live generator.
func NewLive(config Config) (*Live, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("generator model is required: %w", models.ErrInvalidConfig)
	}

	live := &Live{
		model:     config.Model,
		maxTokens: config.MaxTokens,
	}

	switch {
	case config.SocketPath != "":
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", config.SocketPath)
			},
		}
		live.httpClient = &http.Client{Transport: transport}
		live.endpoint = "http://localhost/v1/chat/completions"
	case config.BaseURL != "":
		live.httpClient = &http.Client{}
		live.endpoint = config.BaseURL + "/chat/completions"
		if config.APIKeyEnv != "" {
			live.apiKey = os.Getenv(config.APIKeyEnv)
		}
	default:
		return nil, fmt.Errorf("either base_url or socket_path is required: %w", models.ErrInvalidConfig)
	}

	return live, nil
}

// Name identifies the implementation.
func (l *Live) Name() string { return "live" }

// chatRequest is the request payload for the chat completions API.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Answer sends the question with its retrieved context to the model.
func (l *Live) Answer(ctx context.Context, question, contextText string, citations []models.Citation) (string, error) {
	prompt := fmt.Sprintf(`Context from the documentation:

%s

Question: %s

Answer based on the context above, citing sources by number.`, contextText, question)

	req := chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: l.maxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response returned")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
