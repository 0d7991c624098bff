package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/embedding/static"
	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/storage/sqlite"
	"github.com/Terronex-dev/aifbin-recall/internal/aifbin/aifbintest"
	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/services"
)

// setupMCP wires an MCP server over a temp store.
func setupMCP(t *testing.T) (*Server, *sqlite.Store, *static.Encoder) {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	encoder := static.NewEncoder(3)
	facade := services.NewRecallService(store,
		services.NewSearchEngine(store), services.NewIndexer(store, nil), encoder)

	server, err := NewServer(&Ports{Recall: facade})
	require.NoError(t, err)
	return server, store, encoder
}

// text extracts the first text block of a tool result.
func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	block, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return block.Text
}

func seedChunk(t *testing.T, store *sqlite.Store, collection, id, content string, embedding []float32) {
	t.Helper()
	ctx := context.Background()

	col, err := store.GetCollection(ctx, collection)
	if err != nil {
		col, err = store.CreateCollection(ctx, collection, "")
		require.NoError(t, err)
	}
	require.NoError(t, store.InsertChunk(ctx, &domain.MemoryChunk{
		ID: id, CollectionID: col.ID, SourceFile: "/m/seed.aif-bin",
		Text: content, Embedding: embedding,
	}))
	require.NoError(t, store.UpdateCollectionStats(ctx, col.ID))
}

func TestNewServer_RequiresRecall(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.Error(t, err)
}

func TestRecallSearchTool(t *testing.T) {
	server, store, encoder := setupMCP(t)
	target := []float32{1, 0, 0}
	encoder.Fix("memories", target)
	seedChunk(t, store, "c", "c1", "memories of summer", target)

	result, _, err := server.handleSearch(context.Background(), nil, SearchInput{Query: "memories"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, text(t, result), "memories of summer")
	assert.Contains(t, text(t, result), "c1")
}

func TestRecallSearchTool_UnknownCollection(t *testing.T) {
	server, _, _ := setupMCP(t)

	result, _, err := server.handleSearch(context.Background(), nil, SearchInput{
		Query:      "anything",
		Collection: "missing",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "unknown collection")
}

// An orthogonal chunk scores 0, which still meets the default threshold
// of 0, so the search succeeds with a zero-score hit.
func TestRecallSearchTool_OrthogonalEmbedding(t *testing.T) {
	server, store, _ := setupMCP(t)
	seedChunk(t, store, "c", "c1", "something", []float32{0, 1, 0})

	result, _, err := server.handleSearch(context.Background(), nil, SearchInput{
		Embedding:  []float32{1, 0, 0},
		Collection: "c",
		Limit:      5,
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestRecallGetTool(t *testing.T) {
	server, store, _ := setupMCP(t)
	seedChunk(t, store, "c", "c1", "direct fetch", []float32{1, 0, 0})

	result, _, err := server.handleGet(context.Background(), nil, GetInput{ID: "c1"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, text(t, result), "direct fetch")

	result, _, err = server.handleGet(context.Background(), nil, GetInput{ID: "absent"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "not found")
}

func TestRecallCollectionsTool(t *testing.T) {
	server, store, _ := setupMCP(t)

	result, _, err := server.handleCollections(context.Background(), nil, CollectionsInput{})
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "No collections")

	seedChunk(t, store, "notes", "c1", "content", []float32{1, 0, 0})

	result, _, err = server.handleCollections(context.Background(), nil, CollectionsInput{})
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "notes: 1 files, 1 chunks")
}

func TestRecallIndexTool(t *testing.T) {
	server, _, _ := setupMCP(t)
	dir := t.TempDir()

	vec := make([]float32, 4)
	vec[0] = 1
	data := aifbintest.Build(map[string]any{},
		[]aifbintest.Chunk{aifbintest.TextChunk("indexed via tool", vec, nil)})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.aif-bin"), data, 0600))

	result, _, err := server.handleIndex(context.Background(), nil, IndexInput{
		Path:       dir,
		Collection: "tooled",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, text(t, result), "Indexed 1 files, 1 chunks")
}
