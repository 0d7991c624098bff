package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
)

// searchRequest is the POST /search body.
type searchRequest struct {
	Embedding    []float32 `json:"embedding,omitempty"`
	Query        string    `json:"query,omitempty"`
	Text         string    `json:"text,omitempty"`
	Collection   string    `json:"collection,omitempty"`
	Limit        *int      `json:"limit,omitempty"`
	Threshold    float64   `json:"threshold,omitempty"`
	HybridWeight *float64  `json:"hybrid_weight,omitempty"`
	Model        string    `json:"model,omitempty"`
	Verbose      bool      `json:"verbose,omitempty"`
}

// searchResult is one ranked hit on the wire.
type searchResult struct {
	ID           string         `json:"id"`
	Collection   string         `json:"collection_id"`
	SourceFile   string         `json:"source_file"`
	ChunkIndex   int            `json:"chunk_index"`
	Text         string         `json:"text"`
	Score        float64        `json:"score"`
	VectorScore  float64        `json:"vector_score"`
	KeywordScore float64        `json:"keyword_score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// collectionBody is the POST /collections/{name} body.
type collectionBody struct {
	Description string `json:"description,omitempty"`
}

// indexBody is the POST /index body.
type indexBody struct {
	Path       string `json:"path"`
	Collection string `json:"collection"`
	Recursive  bool   `json:"recursive,omitempty"`
}

// collectionJSON is a collection on the wire.
type collectionJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FileCount   int       `json:"file_count"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// chunkJSON is a chunk on the wire.
type chunkJSON struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	SourceFile   string         `json:"source_file"`
	ChunkIndex   int            `json:"chunk_index"`
	Text         string         `json:"text"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]collectionJSON, len(cols))
	for i := range cols {
		out[i] = toCollectionJSON(&cols[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.service.GetCollection(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionJSON(col))
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var body collectionBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	col, err := s.service.CreateCollection(r.Context(), r.PathValue("name"), body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionJSON(col))
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.DeleteCollection(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, fmt.Errorf("collection %q: %w", r.PathValue("name"), domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	query := body.Query
	if query == "" {
		query = body.Text
	}
	if body.Model != "" && body.Model != s.settings.EmbeddingModel {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error: fmt.Sprintf("model %q is not loaded", body.Model),
			Hint:  fmt.Sprintf("the server is bound to %q", s.settings.EmbeddingModel),
		})
		return
	}

	opts := domain.SearchOptions{
		Collection: body.Collection,
		Threshold:  body.Threshold,
	}
	if body.Limit != nil {
		opts.Limit = *body.Limit
		opts.LimitSet = true
	}
	if body.HybridWeight != nil {
		opts.HybridWeight = *body.HybridWeight
		opts.WeightSet = true
	}

	results, err := s.service.Search(r.Context(), driving.SearchRequest{
		Query:     query,
		Embedding: body.Embedding,
		Options:   opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": toSearchResults(results, body.Verbose),
		"count":   len(results),
	})
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.SearchOptions{Collection: q.Get("collection")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("limit %q: %w", raw, domain.ErrInvalidInput))
			return
		}
		opts.Limit = limit
		opts.LimitSet = true
	}

	results, err := s.service.Search(r.Context(), driving.SearchRequest{
		Query:   q.Get("q"),
		Options: opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": toSearchResults(results, false),
		"count":   len(results),
	})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.service.Recall(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if chunk == nil {
		writeError(w, fmt.Errorf("chunk %q: %w", r.PathValue("id"), domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toChunkJSON(chunk))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var body indexBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Path == "" || body.Collection == "" {
		writeError(w, fmt.Errorf("path and collection required: %w", domain.ErrInvalidInput))
		return
	}

	report, err := s.service.IndexDirectory(r.Context(), driving.IndexRequest{
		Path:       body.Path,
		Collection: body.Collection,
		Recursive:  body.Recursive,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"files_indexed":  report.FilesIndexed,
		"chunks_indexed": report.ChunksIndexed,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListFiles(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		writeError(w, err)
		return
	}

	type fileJSON struct {
		SourceFile string `json:"source_file"`
		ChunkCount int    `json:"chunk_count"`
	}
	out := make([]fileJSON, len(files))
	for i, f := range files {
		out[i] = fileJSON{SourceFile: f.SourceFile, ChunkCount: f.ChunkCount}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	chunks, err := s.service.GetFileChunks(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, fmt.Errorf("file %q: %w", path, domain.ErrNotFound))
		return
	}

	out := make([]chunkJSON, len(chunks))
	for i := range chunks {
		out[i] = toChunkJSON(&chunks[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"source_file": path, "chunks": out})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	n, err := s.service.DeleteFile(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == 0 {
		writeError(w, fmt.Errorf("file %q: %w", path, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.DeleteChunk(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, fmt.Errorf("chunk %q: %w", r.PathValue("id"), domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings)
}

// decodeBody decodes a JSON request body, mapping malformed input onto
// domain.ErrInvalidInput.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // Empty body is valid for optional payloads
		}
		return fmt.Errorf("decoding body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// wildcardPath reconstructs an absolute source path from a {path...}
// wildcard, whose leading slash the mux consumes.
func wildcardPath(r *http.Request) string {
	path := r.PathValue("path")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func toCollectionJSON(col *domain.Collection) collectionJSON {
	return collectionJSON{
		ID:          col.ID,
		Name:        col.Name,
		Description: col.Description,
		FileCount:   col.FileCount,
		ChunkCount:  col.ChunkCount,
		CreatedAt:   col.CreatedAt,
		UpdatedAt:   col.UpdatedAt,
	}
}

func toChunkJSON(chunk *domain.MemoryChunk) chunkJSON {
	return chunkJSON{
		ID:           chunk.ID,
		CollectionID: chunk.CollectionID,
		SourceFile:   chunk.SourceFile,
		ChunkIndex:   chunk.ChunkIndex,
		Text:         chunk.Text,
		Metadata:     chunk.Metadata,
		CreatedAt:    chunk.CreatedAt,
		UpdatedAt:    chunk.UpdatedAt,
	}
}

func toSearchResults(results []domain.SearchResult, verbose bool) []searchResult {
	out := make([]searchResult, len(results))
	for i := range results {
		r := &results[i]
		out[i] = searchResult{
			ID:           r.Chunk.ID,
			Collection:   r.Chunk.CollectionID,
			SourceFile:   r.Chunk.SourceFile,
			ChunkIndex:   r.Chunk.ChunkIndex,
			Text:         r.Chunk.Text,
			Score:        r.Score,
			VectorScore:  r.VectorScore,
			KeywordScore: r.KeywordScore,
		}
		if verbose {
			out[i].Metadata = r.Chunk.Metadata
		}
	}
	return out
}
