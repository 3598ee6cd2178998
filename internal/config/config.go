package config

import "time"

// Config holds all application configuration.
type Config struct {
	Sources    []Source   `mapstructure:"sources"`
	Crawler    Crawler    `mapstructure:"crawler"`
	Normalizer Normalizer `mapstructure:"normalizer"`
	Chunking   Chunking   `mapstructure:"chunking"`
	Storage    Storage    `mapstructure:"storage"`
	Index      Index      `mapstructure:"index"`
	Embeddings Embeddings `mapstructure:"embeddings"`
	Retrieval  Retrieval  `mapstructure:"retrieval"`
	Generator  Generator  `mapstructure:"generator"`
	MCP        MCP        `mapstructure:"mcp"`
}

// Source defines one documentation site section to crawl.
type Source struct {
	Name       string   `mapstructure:"name"`
	URL        string   `mapstructure:"url"`
	AllowHosts []string `mapstructure:"allow_hosts"`
}

// Crawler holds fetcher configuration. Delay is enforced per host.
type Crawler struct {
	Delay     time.Duration `mapstructure:"delay"`
	MaxPages  int           `mapstructure:"max_pages"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Workers   int           `mapstructure:"workers"`
}

// Normalizer holds content extraction configuration.
type Normalizer struct {
	MinTextLength int        `mapstructure:"min_text_length"`
	SourceTypes   []PathRule `mapstructure:"source_types"`
}

// PathRule maps a URL path prefix to a source type label.
type PathRule struct {
	Prefix string `mapstructure:"prefix"`
	Type   string `mapstructure:"type"`
}

// Chunking holds the sliding-window parameters, in characters.
type Chunking struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// Storage holds S3/MinIO document store configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Index selects and configures the vector index backend.
type Index struct {
	Backend       string        `mapstructure:"backend"` // "elasticsearch", "qdrant" or "memory"
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Qdrant        Qdrant        `mapstructure:"qdrant"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Qdrant holds Qdrant gRPC connection configuration.
type Qdrant struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// Embeddings holds the embedding model client configuration. Exactly one
// of SocketPath and BaseURL must be set. Dimensions is the contract shared
// by ingestion and query; a model producing a different dimensionality
// fails fast.
type Embeddings struct {
	BaseURL    string `mapstructure:"base_url"`
	SocketPath string `mapstructure:"socket_path"`
	APIKeyEnv  string `mapstructure:"api_key_env"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// Retrieval holds the read-path policy. K and MinScore are defaults and
// may be overridden per request.
type Retrieval struct {
	K                int           `mapstructure:"k"`
	MinScore         float64       `mapstructure:"min_score"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxContextLength int           `mapstructure:"max_context_length"`
}

// Generator configures the answer generator. When Enabled is false, or the
// API key is absent, the template fallback is used instead of a live model.
type Generator struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	SocketPath string `mapstructure:"socket_path"`
	APIKeyEnv  string `mapstructure:"api_key_env"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Sources: []Source{
			{Name: "handbook", URL: "https://about.gitlab.com/handbook/"},
			{Name: "direction", URL: "https://about.gitlab.com/direction/"},
		},
		Crawler: Crawler{
			Delay:     1 * time.Second,
			MaxPages:  100,
			Timeout:   30 * time.Second,
			UserAgent: "handbook-rag/1.0",
			Workers:   2,
		},
		Normalizer: Normalizer{
			MinTextLength: 100,
			SourceTypes: []PathRule{
				{Prefix: "/handbook", Type: "handbook"},
				{Prefix: "/direction", Type: "direction"},
			},
		},
		Chunking: Chunking{
			Size:    1000,
			Overlap: 200,
		},
		Storage: Storage{
			Endpoint:        "localhost:9000",
			Bucket:          "handbook-rag",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Index: Index{
			Backend: "elasticsearch",
			Elasticsearch: Elasticsearch{
				Addresses: []string{"http://localhost:9200"},
				Index:     "handbook-rag-chunks",
			},
			Qdrant: Qdrant{
				Host:       "localhost",
				Port:       6334,
				Collection: "handbook_rag_chunks",
			},
		},
		Embeddings: Embeddings{
			BaseURL:    "https://api.openai.com/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Retrieval: Retrieval{
			K:                5,
			MinScore:         0.7,
			Timeout:          10 * time.Second,
			MaxContextLength: 6000,
		},
		Generator: Generator{
			Enabled:   false,
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4o-mini",
			MaxTokens: 500,
		},
		MCP: MCP{
			Name:    "handbook-rag",
			Version: "1.0.0",
		},
	}
}
