package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"handbookrag/pkg/models"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty endpoint",
			config:  Config{Endpoint: "", Bucket: "test"},
			wantErr: true,
		},
		{
			name:    "empty bucket",
			config:  Config{Endpoint: "localhost:9000", Bucket: ""},
			wantErr: true,
		},
		{
			name: "valid config",
			config: Config{
				Endpoint:        "localhost:9000",
				Bucket:          "test",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestIntegration_DocumentRoundTrip exercises the store against MinIO.
// Skips when MinIO is not running.
func TestIntegration_DocumentRoundTrip(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := New(Config{
		Endpoint:        endpoint,
		Bucket:          "handbook-rag-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available, skipping integration test: %v", err)
	}

	prefix := "crawls/test.example.com/2026-08-24T10-00-00-test123"

	doc := models.Document{
		URL:        "https://test.example.com/handbook/values",
		Title:      "Values",
		SourceType: "handbook",
		Text:       "We value iteration and transparency.",
		FetchedAt:  time.Now().UTC().Truncate(time.Second),
	}

	t.Run("PutDocument", func(t *testing.T) {
		if err := client.PutDocument(ctx, prefix, doc); err != nil {
			t.Fatalf("PutDocument() error = %v", err)
		}
		// Writing the same URL twice overwrites, never duplicates.
		if err := client.PutDocument(ctx, prefix, doc); err != nil {
			t.Fatalf("PutDocument() second call error = %v", err)
		}
	})

	t.Run("ListDocuments", func(t *testing.T) {
		keys, err := client.ListDocuments(ctx, prefix)
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(keys) != 1 {
			t.Fatalf("expected 1 key, got %d", len(keys))
		}
	})

	t.Run("GetDocument", func(t *testing.T) {
		key := models.DocumentKey(doc.URL) + ".json"
		got, err := client.GetDocument(ctx, prefix, key)
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if got.URL != doc.URL || got.Title != doc.Title || got.Text != doc.Text {
			t.Errorf("round trip mismatch: got %+v", got)
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		manifest := CrawlManifest{
			SourceURL: "https://test.example.com/handbook/",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			PageCount: 1,
			URLs:      []string{doc.URL},
		}
		if err := client.PutManifest(ctx, prefix, manifest); err != nil {
			t.Fatalf("PutManifest() error = %v", err)
		}

		got, err := client.GetManifest(ctx, prefix)
		if err != nil {
			t.Fatalf("GetManifest() error = %v", err)
		}
		if got.SourceURL != manifest.SourceURL || got.PageCount != 1 {
			t.Errorf("manifest mismatch: got %+v", got)
		}
	})
}
