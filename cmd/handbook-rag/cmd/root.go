package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"handbookrag/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "handbook-rag",
	Short: "handbook-rag: documentation retrieval over a crawled handbook",
	Long: `handbook-rag crawls documentation sites, normalizes HTML to Markdown,
chunks and embeds the text into a vector index, and answers questions
with cited sources.

Commands:
  crawl   Crawl configured sources and index the documents
  ingest  Re-index previously crawled documents from the store
  query   Retrieve chunks matching a query
  ask     Answer a question from the indexed documentation
  serve   Start the MCP server for retrieval tools`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/handbook-rag")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// HBRAG_INDEX_ELASTICSEARCH_ADDRESSES -> index.elasticsearch.addresses
	viper.SetEnvPrefix("HBRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("index.backend", "HBRAG_INDEX_BACKEND")
	viper.BindEnv("index.elasticsearch.addresses", "HBRAG_INDEX_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("index.elasticsearch.index", "HBRAG_INDEX_ELASTICSEARCH_INDEX")
	viper.BindEnv("index.elasticsearch.username", "HBRAG_INDEX_ELASTICSEARCH_USERNAME")
	viper.BindEnv("index.elasticsearch.password", "HBRAG_INDEX_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("index.qdrant.host", "HBRAG_INDEX_QDRANT_HOST")
	viper.BindEnv("index.qdrant.port", "HBRAG_INDEX_QDRANT_PORT")
	viper.BindEnv("index.qdrant.api_key", "HBRAG_INDEX_QDRANT_API_KEY")
	viper.BindEnv("index.qdrant.collection", "HBRAG_INDEX_QDRANT_COLLECTION")
	viper.BindEnv("storage.endpoint", "HBRAG_STORAGE_ENDPOINT")
	viper.BindEnv("storage.bucket", "HBRAG_STORAGE_BUCKET")
	viper.BindEnv("storage.access_key_id", "HBRAG_STORAGE_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "HBRAG_STORAGE_SECRET_ACCESS_KEY")
	viper.BindEnv("embeddings.base_url", "HBRAG_EMBEDDINGS_BASE_URL")
	viper.BindEnv("embeddings.socket_path", "HBRAG_EMBEDDINGS_SOCKET_PATH")
	viper.BindEnv("embeddings.model", "HBRAG_EMBEDDINGS_MODEL")
	viper.BindEnv("embeddings.dimensions", "HBRAG_EMBEDDINGS_DIMENSIONS")
	viper.BindEnv("generator.enabled", "HBRAG_GENERATOR_ENABLED")
	viper.BindEnv("generator.model", "HBRAG_GENERATOR_MODEL")
	viper.BindEnv("crawler.delay", "HBRAG_CRAWLER_DELAY")
	viper.BindEnv("crawler.max_pages", "HBRAG_CRAWLER_MAX_PAGES")
	viper.BindEnv("retrieval.k", "HBRAG_RETRIEVAL_K")
	viper.BindEnv("retrieval.min_score", "HBRAG_RETRIEVAL_MIN_SCORE")
	viper.BindEnv("mcp.name", "HBRAG_MCP_NAME")
	viper.BindEnv("mcp.version", "HBRAG_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("HBRAG_INDEX_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Index.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
