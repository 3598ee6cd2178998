package generator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"handbookrag/pkg/models"
)

func TestNew_SelectsFallbackWhenDisabled(t *testing.T) {
	gen, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if gen.Name() != "fallback" {
		t.Errorf("Name() = %q, want fallback", gen.Name())
	}
}

func TestNew_SelectsFallbackWithoutCredentials(t *testing.T) {
	t.Setenv("HBRAG_TEST_MISSING_KEY", "")

	gen, err := New(Config{
		Enabled:   true,
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "HBRAG_TEST_MISSING_KEY",
		Model:     "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if gen.Name() != "fallback" {
		t.Errorf("Name() = %q, want fallback when the key env is empty", gen.Name())
	}
}

func TestNew_SelectsLiveWithCredentials(t *testing.T) {
	t.Setenv("HBRAG_TEST_KEY", "sk-test")

	gen, err := New(Config{
		Enabled:   true,
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "HBRAG_TEST_KEY",
		Model:     "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if gen.Name() != "live" {
		t.Errorf("Name() = %q, want live", gen.Name())
	}
}

func TestFallback_QuotesContextAndSources(t *testing.T) {
	gen := NewFallback()

	citations := []models.Citation{
		{Title: "Values", URL: "https://example.com/values", Score: 0.92},
		{Title: "Cadence", URL: "https://example.com/cadence", Score: 0.81},
	}

	answer, err := gen.Answer(t.Context(), "what do we value?",
		"[1] Values (https://example.com/values)\nWe value results.", citations)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !strings.Contains(answer, "what do we value?") {
		t.Error("answer should echo the question")
	}
	if !strings.Contains(answer, "We value results.") {
		t.Error("answer should quote the retrieved context")
	}
	if !strings.Contains(answer, "https://example.com/values") ||
		!strings.Contains(answer, "https://example.com/cadence") {
		t.Error("answer should list every source")
	}
}

func TestFallback_EmptyContext(t *testing.T) {
	gen := NewFallback()

	answer, err := gen.Answer(t.Context(), "unknown topic", "", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(answer, "No indexed documentation matched") {
		t.Errorf("answer should state that nothing matched, got %q", answer)
	}
}

func TestFallback_TruncatesLongContext(t *testing.T) {
	gen := NewFallback()

	long := strings.Repeat("x", previewLen+500)
	answer, err := gen.Answer(t.Context(), "q", long, nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if strings.Contains(answer, long) {
		t.Error("answer should truncate the context preview")
	}
	if !strings.Contains(answer, "...") {
		t.Error("truncated preview should end with an ellipsis")
	}
}

func TestLive_Answer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"We value results. [1]"}}]}`))
	}))
	defer server.Close()

	t.Setenv("HBRAG_TEST_LIVE_KEY", "sk-test")

	gen, err := NewLive(Config{
		BaseURL:   server.URL,
		APIKeyEnv: "HBRAG_TEST_LIVE_KEY",
		Model:     "test-model",
	})
	if err != nil {
		t.Fatalf("NewLive() error = %v", err)
	}

	answer, err := gen.Answer(t.Context(), "what do we value?", "[1] context", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "We value results. [1]" {
		t.Errorf("Answer() = %q", answer)
	}
}

func TestLive_SurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream unavailable`))
	}))
	defer server.Close()

	gen, err := NewLive(Config{BaseURL: server.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewLive() error = %v", err)
	}

	_, err = gen.Answer(t.Context(), "q", "context", nil)
	if err == nil {
		t.Fatal("Answer() should surface API errors")
	}
}
