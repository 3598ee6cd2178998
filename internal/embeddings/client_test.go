package embeddings

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"handbookrag/pkg/models"
)

func embeddingServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		vector := make([]float32, dims)
		vector[0] = 1

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vector}},
		})
	}))
}

func TestClient_Embed(t *testing.T) {
	server := embeddingServer(t, 4)
	defer server.Close()

	client, err := New(Config{
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	vector, err := client.Embed(t.Context(), "some text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 4 {
		t.Errorf("vector length = %d, want 4", len(vector))
	}
}

func TestClient_Embed_RejectsDimensionMismatch(t *testing.T) {
	server := embeddingServer(t, 8)
	defer server.Close()

	client, err := New(Config{
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Embed(t.Context(), "some text")
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Embed() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestClient_Embed_TruncatesLongInput(t *testing.T) {
	var receivedLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		receivedLen = len(req.Input)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 0}}},
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Model: "test-model", Dimensions: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Embed(t.Context(), strings.Repeat("x", MaxInputChars+5000))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if receivedLen != MaxInputChars {
		t.Errorf("server received %d chars, want %d", receivedLen, MaxInputChars)
	}
}

func TestClient_Embed_TruncationKeepsValidUTF8(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		received = req.Input

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 0}}},
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Model: "test-model", Dimensions: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// 3-byte runes: MaxInputChars does not fall on a rune boundary, so a
	// byte-exact cut would split the encoding.
	_, err = client.Embed(t.Context(), strings.Repeat("€", MaxInputChars))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if !utf8.ValidString(received) {
		t.Error("truncated input should remain valid UTF-8")
	}
	if len(received) > MaxInputChars {
		t.Errorf("server received %d bytes, want at most %d", len(received), MaxInputChars)
	}
	if received == "" {
		t.Error("truncation should not discard the whole input")
	}
}

func TestClient_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Embed(t.Context(), "text")
	if err == nil {
		t.Fatal("Embed() should surface API errors")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Model: "m"}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Errorf("New() without endpoint error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(Config{BaseURL: "http://localhost"}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Errorf("New() without model error = %v, want ErrInvalidConfig", err)
	}
}

func TestModelDimensions(t *testing.T) {
	if got := ModelDimensions("text-embedding-3-small"); got != 1536 {
		t.Errorf("ModelDimensions = %d, want 1536", got)
	}
	if got := ModelDimensions("unknown-model"); got != 0 {
		t.Errorf("ModelDimensions for unknown model = %d, want 0", got)
	}
}
