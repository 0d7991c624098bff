package aifbin_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Terronex-dev/aifbin-recall/internal/aifbin"
	"github.com/Terronex-dev/aifbin-recall/internal/aifbin/aifbintest"
)

// writeTempFile writes a memory file image to a temp path.
func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem.aif-bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func unitVec(dims, hot int) []float32 {
	vec := make([]float32, dims)
	vec[hot] = 1
	return vec
}

func TestParse_TooSmall(t *testing.T) {
	path := writeTempFile(t, make([]byte, 32))

	parsed, err := aifbin.NewParser().Parse(path)
	assert.Nil(t, parsed)
	require.ErrorIs(t, err, aifbin.ErrTooSmall)

	var parseErr *aifbin.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, path, parseErr.Path)
}

func TestParse_BadMagic(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, nil)
	for i := 0; i < 8; i++ {
		data[i] = 0
	}
	path := writeTempFile(t, data)

	parsed, err := aifbin.NewParser().Parse(path)
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, aifbin.ErrBadMagic)
}

func TestParse_EmptyChunkList(t *testing.T) {
	path := writeTempFile(t, aifbintest.Build(map[string]any{}, nil))

	parsed, err := aifbin.NewParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), parsed.Version)
	assert.Empty(t, parsed.Chunks)
	assert.Empty(t, parsed.Metadata)
}

func TestParse_TextChunk(t *testing.T) {
	embedding := unitVec(4, 0)
	data := aifbintest.Build(
		map[string]any{"title": "notes", "created_at": "2024-05-01T00:00:00Z"},
		[]aifbintest.Chunk{
			aifbintest.TextChunk("hello world", embedding, map[string]any{"id": "chunk-1", "lang": "en"}),
		},
	)
	path := writeTempFile(t, data)

	parsed, err := aifbin.NewParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "notes", parsed.Metadata["title"])

	require.Len(t, parsed.Chunks, 1)
	chunk := parsed.Chunks[0]
	assert.Equal(t, "chunk-1", chunk.ID)
	assert.Equal(t, aifbin.ChunkTypeText, chunk.Type)
	assert.Equal(t, "hello world", chunk.Text)
	assert.Equal(t, embedding, chunk.Embedding)
	assert.Equal(t, "en", chunk.Metadata["lang"])
	// The embedding is hoisted out of the metadata map.
	assert.NotContains(t, chunk.Metadata, "embedding")
}

func TestParse_TableJSONCanonicalized(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, []aifbintest.Chunk{
		{
			Type:     aifbin.ChunkTypeTableJSON,
			Data:     []byte("{\n  \"b\": 2,\n  \"a\": 1\n}"),
			Metadata: map[string]any{},
		},
	})
	path := writeTempFile(t, data)

	parsed, err := aifbin.NewParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, parsed.Chunks, 1)
	assert.Equal(t, `{"a":1,"b":2}`, parsed.Chunks[0].Text)
}

func TestParse_MediaChunkHasNoText(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, []aifbintest.Chunk{
		{
			Type:     aifbin.ChunkTypeImage,
			Data:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
			Metadata: map[string]any{"embedding": []any{float32(1), float32(0)}},
		},
	})
	path := writeTempFile(t, data)

	parsed, err := aifbin.NewParser().Parse(path)
	require.NoError(t, err)
	require.Len(t, parsed.Chunks, 1)
	assert.Empty(t, parsed.Chunks[0].Text)
	assert.Equal(t, []float32{1, 0}, parsed.Chunks[0].Embedding)
}

func TestParse_DerivedIDIsDeterministic(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, []aifbintest.Chunk{
		aifbintest.TextChunk("no id here", unitVec(4, 1), nil),
	})
	path := writeTempFile(t, data)

	parser := aifbin.NewParser()
	first, err := parser.Parse(path)
	require.NoError(t, err)
	second, err := parser.Parse(path)
	require.NoError(t, err)

	require.Len(t, first.Chunks, 1)
	assert.NotEmpty(t, first.Chunks[0].ID)
	assert.Equal(t, first.Chunks[0].ID, second.Chunks[0].ID)
	assert.Equal(t, aifbin.DeriveChunkID(path, 0, "no id here"), first.Chunks[0].ID)
}

func TestParse_CustomIDSource(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, []aifbintest.Chunk{
		aifbintest.TextChunk("anonymous", unitVec(4, 0), nil),
	})
	path := writeTempFile(t, data)

	parser := &aifbin.Parser{IDSource: func(_ string, index int, _ string) string {
		return "fixed-id"
	}}
	parsed, err := parser.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", parsed.Chunks[0].ID)
}

func TestParse_MalformedChunkKeepsPartialResult(t *testing.T) {
	// Two valid chunks, then a record whose declared data length runs
	// past the payload.
	payload := aifbintest.ChunkPayload([]aifbintest.Chunk{
		aifbintest.TextChunk("first", unitVec(4, 0), nil),
		aifbintest.TextChunk("second", unitVec(4, 1), nil),
	})
	// Bump the declared count and append a record header whose data
	// length runs past the payload.
	binary.LittleEndian.PutUint32(payload, 3)
	bad := make([]byte, 20)
	binary.LittleEndian.PutUint32(bad, aifbin.ChunkTypeText)
	binary.LittleEndian.PutUint64(bad[4:], 1<<40) // data length out of range
	payload = append(payload, bad...)

	path := writeTempFile(t, aifbintest.BuildRaw(payload))

	parsed, err := aifbin.NewParser().Parse(path)
	require.Error(t, err)
	require.NotNil(t, parsed)
	require.Len(t, parsed.Chunks, 2)
	assert.Equal(t, "first", parsed.Chunks[0].Text)
	assert.Equal(t, "second", parsed.Chunks[1].Text)
}

func TestParse_BadMetadataIsTolerated(t *testing.T) {
	data := aifbintest.Build(map[string]any{}, []aifbintest.Chunk{
		aifbintest.TextChunk("still here", unitVec(4, 2), nil),
	})
	// Corrupt the metadata section payload: the metadata section is
	// first, at offset 64, with payload starting at 72.
	metaOff := binary.LittleEndian.Uint64(data[16:])
	require.EqualValues(t, 64, metaOff)
	data[72] = 0xFF

	path := writeTempFile(t, data)

	parsed, err := aifbin.NewParser().Parse(path)
	require.NoError(t, err)
	assert.Error(t, parsed.MetadataErr)
	assert.Empty(t, parsed.Metadata)
	require.Len(t, parsed.Chunks, 1)
	assert.Equal(t, "still here", parsed.Chunks[0].Text)
}

func TestParse_DeterministicAcrossCalls(t *testing.T) {
	data := aifbintest.Build(
		map[string]any{"k": "v"},
		[]aifbintest.Chunk{aifbintest.TextChunk("alpha", unitVec(3, 0), map[string]any{"id": "a"})},
	)
	path := writeTempFile(t, data)

	parser := aifbin.NewParser()
	first, err := parser.Parse(path)
	require.NoError(t, err)
	second, err := parser.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
