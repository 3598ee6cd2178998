// Package docstore persists normalized documents between the crawl and
// embedding stages, so re-chunking and re-embedding never require a
// re-crawl. Documents are JSON objects in an S3/MinIO bucket.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"handbookrag/pkg/models"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for document store operations.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new document store client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required: %w", models.ErrInvalidConfig)
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required: %w", models.ErrInvalidConfig)
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{minioClient: minioClient, bucket: config.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// CrawlManifest describes one crawl run under a prefix.
type CrawlManifest struct {
	SourceURL string   `json:"source_url"`
	Timestamp string   `json:"timestamp"`
	PageCount int      `json:"page_count"`
	URLs      []string `json:"urls"`
}

// PutDocument writes a document as JSON under the given crawl prefix,
// keyed by its URL hash. Re-crawling the same URL overwrites in place.
func (c *Client) PutDocument(ctx context.Context, prefix string, doc models.Document) error {
	objectName := path.Join(prefix, "docs", models.DocumentKey(doc.URL)+".json")

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// GetDocument reads a document by object key from a crawl prefix.
func (c *Client) GetDocument(ctx context.Context, prefix, key string) (*models.Document, error) {
	objectName := path.Join(prefix, "docs", key)

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns the object keys of all documents under a crawl
// prefix, supporting iteration for re-chunking without re-crawling.
func (c *Client) ListDocuments(ctx context.Context, prefix string) ([]string, error) {
	docsPrefix := path.Join(prefix, "docs") + "/"
	var keys []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    docsPrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ".json") {
			keys = append(keys, path.Base(object.Key))
		}
	}
	return keys, nil
}

// PutManifest writes the crawl manifest JSON under the prefix.
func (c *Client) PutManifest(ctx context.Context, prefix string, manifest CrawlManifest) error {
	objectName := path.Join(prefix, "crawl.json")

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put manifest: %w", err)
	}
	return nil
}

// GetManifest reads the crawl manifest from a prefix.
func (c *Client) GetManifest(ctx context.Context, prefix string) (*CrawlManifest, error) {
	objectName := path.Join(prefix, "crawl.json")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest CrawlManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
