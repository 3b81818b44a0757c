// Package mcp exposes footage search as a Model Context Protocol tool.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/search/request"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/version"
)

// ToolSearchFootage is the registered tool name.
const ToolSearchFootage = "search_footage"

// DefaultPath is where the streamable HTTP endpoint is mounted.
const DefaultPath = "/mcp"

// Searcher runs the blocking search pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]result.Ranked, error)
}

// NewServer builds an MCP server with the search_footage tool.
func NewServer(s Searcher, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ms := server.NewMCPServer("footage", version.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Find film footage by describing the shot in natural language."),
	)
	ms.AddTool(searchTool(), handleSearch(s, logger))
	return ms
}

// NewHTTPHandler serves ms over streamable HTTP at path.
func NewHTTPHandler(ms *server.MCPServer, path string) http.Handler {
	if path == "" {
		path = DefaultPath
	}
	return server.NewStreamableHTTPServer(ms, server.WithEndpointPath(path))
}

func searchTool() mcp.Tool {
	return mcp.NewTool(ToolSearchFootage,
		mcp.WithDescription("Search indexed film clips by a natural-language description. "+
			"Returns ranked clips with timecodes, snippet, confidence and scene metadata."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What happens in the shot, e.g. \"Michael outside the restaurant at night\""),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-20, default 10)"),
			mcp.Min(request.MinLimit),
			mcp.Max(request.MaxLimit),
		),
	)
}

func handleSearch(s Searcher, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", request.DefaultLimit)

		results, err := s.Search(ctx, q, limit)
		if err != nil {
			logger.Warn("mcp search failed", zap.String("query", q), zap.Error(err))
			return mcp.NewToolResultError(toolErrorText(err)), nil
		}
		if results == nil {
			results = []result.Ranked{}
		}

		body, err := json.Marshal(results)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func toolErrorText(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	for _, sentinel := range []error{domain.ErrTimeout, domain.ErrEmbedding, domain.ErrRetrieval} {
		if errors.Is(err, sentinel) {
			return "search failed: " + sentinel.Error()
		}
	}
	return "search failed"
}
