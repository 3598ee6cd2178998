// Package mcp exposes retrieval and question answering as MCP tools over
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"handbookrag/internal/assembler"
	"handbookrag/internal/generator"
	"handbookrag/internal/retriever"
)

// Config holds MCP server configuration.
type Config struct {
	Name             string
	Version          string
	MaxContextLength int
}

// Server wraps the MCP server with the retrieval and generation stack.
type Server struct {
	mcpServer *server.MCPServer
	retriever *retriever.Retriever
	generator generator.Generator
	config    Config
}

// NewServer creates a new MCP server with retrieval tools.
func NewServer(config Config, ret *retriever.Retriever, gen generator.Generator) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		retriever: ret,
		generator: gen,
		config:    config,
	}

	retrieveTool := mcp.NewTool("retrieve_chunks",
		mcp.WithDescription("Retrieve documentation chunks relevant to a query. Returns scored chunks with source URLs as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default: configured value)"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum similarity score in [0, 1] (default: configured value)"),
		),
	)
	mcpServer.AddTool(retrieveTool, s.retrieveHandler)

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the indexed documentation, with cited sources."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to ground the answer on"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum similarity score in [0, 1] (default: configured value)"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	return s
}

// retrieveHandler handles the retrieve_chunks tool call.
func (s *Server) retrieveHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	k := req.GetInt("k", 0)
	minScore := req.GetFloat("min_score", -1)

	result, err := s.retriever.RetrieveWith(ctx, query, k, minScore)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// askHandler handles the ask tool call: retrieve, assemble, generate.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	k := req.GetInt("k", 0)
	minScore := req.GetFloat("min_score", -1)

	result, err := s.retriever.RetrieveWith(ctx, question, k, minScore)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	contextText, citations := assembler.Assemble(result, s.config.MaxContextLength)

	answer, err := s.generator.Answer(ctx, question, contextText, citations)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	return mcp.NewToolResultText(answer), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
