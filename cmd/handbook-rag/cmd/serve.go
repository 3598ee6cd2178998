package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"handbookrag/internal/generator"
	"handbookrag/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for documentation retrieval.

The server communicates via stdio and provides two tools:
  - retrieve_chunks: Retrieve scored chunks for a query
  - ask: Answer a question with cited sources

Example:
  handbook-rag serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ret, err := newRetriever(cfg)
	if err != nil {
		return err
	}

	gen, err := generator.New(generator.Config{
		Enabled:    cfg.Generator.Enabled,
		BaseURL:    cfg.Generator.BaseURL,
		SocketPath: cfg.Generator.SocketPath,
		APIKeyEnv:  cfg.Generator.APIKeyEnv,
		Model:      cfg.Generator.Model,
		MaxTokens:  cfg.Generator.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	server := mcp.NewServer(mcp.Config{
		Name:             cfg.MCP.Name,
		Version:          cfg.MCP.Version,
		MaxContextLength: cfg.Retrieval.MaxContextLength,
	}, ret, gen)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
