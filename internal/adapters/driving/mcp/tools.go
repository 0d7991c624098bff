package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
)

// SearchInput is the input schema for the recall_search tool.
type SearchInput struct {
	Query      string    `json:"query" jsonschema:"the search query text"`
	Embedding  []float32 `json:"embedding,omitempty" jsonschema:"optional pre-computed query vector"`
	Collection string    `json:"collection,omitempty" jsonschema:"restrict the search to a named collection"`
	Limit      int       `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
}

// GetInput is the input schema for the recall_get tool.
type GetInput struct {
	ID string `json:"id" jsonschema:"the chunk id to fetch"`
}

// CollectionsInput is the (empty) input schema for recall_collections.
type CollectionsInput struct{}

// IndexInput is the input schema for the recall_index tool.
type IndexInput struct {
	Path       string `json:"path" jsonschema:"directory to scan for .aif-bin memory files"`
	Collection string `json:"collection" jsonschema:"target collection name, created on demand"`
	Recursive  bool   `json:"recursive,omitempty" jsonschema:"walk subdirectories"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_search",
		Description: "Search stored memory chunks by semantic similarity and keywords",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_get",
		Description: "Fetch a single memory chunk by id",
	}, s.handleGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_collections",
		Description: "List memory collections with file and chunk counts",
	}, s.handleCollections)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall_index",
		Description: "Ingest a directory of .aif-bin memory files into a collection",
	}, s.handleIndex)
}

// textResult wraps plain text as a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult wraps a failure as tool content with is_error set, so
// the agent host can surface it to the model.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// handleSearch handles the recall_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, any, error) {
	opts := domain.SearchOptions{Collection: input.Collection}
	if input.Limit > 0 {
		opts.Limit = input.Limit
		opts.LimitSet = true
	}

	results, err := s.ports.Recall.Search(ctx, driving.SearchRequest{
		Query:     input.Query,
		Embedding: input.Embedding,
		Options:   opts,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	if len(results) == 0 {
		return textResult("No matching chunks found."), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d results:\n", len(results))
	for i := range results {
		r := &results[i]
		fmt.Fprintf(&b, "\n[%d] score=%.4f (vector=%.4f keyword=%.4f) id=%s\n%s\n",
			i+1, r.Score, r.VectorScore, r.KeywordScore, r.Chunk.ID, r.Chunk.Text)
	}
	return textResult(b.String()), nil, nil
}

// handleGet handles the recall_get tool invocation.
func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetInput,
) (*mcp.CallToolResult, any, error) {
	chunk, err := s.ports.Recall.Recall(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if chunk == nil {
		return errorResult(fmt.Errorf("chunk %q not found", input.ID)), nil, nil
	}

	return textResult(fmt.Sprintf("id=%s source=%s index=%d\n%s",
		chunk.ID, chunk.SourceFile, chunk.ChunkIndex, chunk.Text)), nil, nil
}

// handleCollections handles the recall_collections tool invocation.
func (s *Server) handleCollections(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CollectionsInput,
) (*mcp.CallToolResult, any, error) {
	cols, err := s.ports.Recall.ListCollections(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}

	if len(cols) == 0 {
		return textResult("No collections."), nil, nil
	}

	var b strings.Builder
	for i := range cols {
		fmt.Fprintf(&b, "%s: %d files, %d chunks\n", cols[i].Name, cols[i].FileCount, cols[i].ChunkCount)
	}
	return textResult(b.String()), nil, nil
}

// handleIndex handles the recall_index tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, any, error) {
	report, err := s.ports.Recall.IndexDirectory(ctx, driving.IndexRequest{
		Path:       input.Path,
		Collection: input.Collection,
		Recursive:  input.Recursive,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	return textResult(fmt.Sprintf("Indexed %d files, %d chunks into %q.",
		report.FilesIndexed, report.ChunksIndexed, input.Collection)), nil, nil
}
