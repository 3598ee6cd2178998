package cmd

import (
	"fmt"

	"handbookrag/internal/config"
	"handbookrag/internal/docstore"
	"handbookrag/internal/embeddings"
	"handbookrag/internal/index"
	"handbookrag/internal/index/elasticsearch"
	"handbookrag/internal/index/memory"
	"handbookrag/internal/index/qdrant"
	"handbookrag/internal/retriever"
)

// newIndexStore builds the configured vector index backend.
func newIndexStore(cfg config.Config) (index.Store, error) {
	switch cfg.Index.Backend {
	case "elasticsearch", "":
		return elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.Index.Elasticsearch.Addresses,
			Index:     cfg.Index.Elasticsearch.Index,
			Username:  cfg.Index.Elasticsearch.Username,
			Password:  cfg.Index.Elasticsearch.Password,
		})
	case "qdrant":
		return qdrant.New(qdrant.Config{
			Host:       cfg.Index.Qdrant.Host,
			Port:       cfg.Index.Qdrant.Port,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			UseTLS:     cfg.Index.Qdrant.UseTLS,
		})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

// newEmbedder builds the embeddings client. When dimensions are not
// configured, the model's known dimensionality is used.
func newEmbedder(cfg config.Config) (*embeddings.Client, error) {
	dims := cfg.Embeddings.Dimensions
	if dims == 0 {
		dims = embeddings.ModelDimensions(cfg.Embeddings.Model)
	}
	return embeddings.New(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		SocketPath: cfg.Embeddings.SocketPath,
		APIKeyEnv:  cfg.Embeddings.APIKeyEnv,
		Model:      cfg.Embeddings.Model,
		Dimensions: dims,
	})
}

// newDocstore builds the document store client.
func newDocstore(cfg config.Config) (*docstore.Client, error) {
	return docstore.New(docstore.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
}

// newRetriever wires embedder and index into the read path.
func newRetriever(cfg config.Config) (*retriever.Retriever, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}
	store, err := newIndexStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create index client: %w", err)
	}
	return retriever.New(embedder, store, retriever.Config{
		K:        cfg.Retrieval.K,
		MinScore: cfg.Retrieval.MinScore,
		Timeout:  cfg.Retrieval.Timeout,
	})
}
