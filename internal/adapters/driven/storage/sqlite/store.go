package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
)

// Ensure Store implements the driven port.
var _ driven.Store = (*Store)(nil)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "~/.aifbin-recall/index.db"

// Store is the SQLite-backed persistent index over collections,
// chunks, and the keyword inverted index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the index database at path.
// An empty path defaults to ~/.aifbin-recall/index.db; a leading ~ is
// expanded to the user's home and parent directories are created.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency. Foreign keys
	// are also set in the DSN so every pooled connection enforces them.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys so collection deletes cascade to chunks
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Collections ====================

// CreateCollection creates a named collection.
func (s *Store) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name: %w", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	col := domain.Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, file_count, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)
	`, col.ID, col.Name, nullString(col.Description), col.CreatedAt, col.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("collection %q: %w", name, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	return &col, nil
}

// GetCollection retrieves a collection by name.
func (s *Store) GetCollection(ctx context.Context, name string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, file_count, chunk_count, created_at, updated_at
		FROM collections WHERE name = ?
	`, name)
	return scanCollection(row)
}

// GetCollectionByID retrieves a collection by id.
func (s *Store) GetCollectionByID(ctx context.Context, id string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, file_count, chunk_count, created_at, updated_at
		FROM collections WHERE id = ?
	`, id)
	return scanCollection(row)
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, file_count, chunk_count, created_at, updated_at
		FROM collections ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var cols []domain.Collection //nolint:prealloc // size unknown from query
	for rows.Next() {
		var col domain.Collection
		var description sql.NullString
		if err := rows.Scan(&col.ID, &col.Name, &description, &col.FileCount,
			&col.ChunkCount, &col.CreatedAt, &col.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		col.Description = description.String
		cols = append(cols, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return cols, nil
}

// DeleteCollection removes a collection; chunks cascade atomically.
func (s *Store) DeleteCollection(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("deleting collection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting collection: %w", err)
	}
	return n > 0, nil
}

// ==================== Chunks ====================

// InsertChunk stores a single chunk.
func (s *Store) InsertChunk(ctx context.Context, chunk *domain.MemoryChunk) error {
	return s.InsertChunks(ctx, []domain.MemoryChunk{*chunk})
}

// InsertChunks stores a batch of chunks inside one transaction.
// Each chunk's embedding length must match the collection's
// established dimensionality; a violating row aborts the whole batch
// with domain.ErrDimMismatch and the store is left unchanged.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.MemoryChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection_id, source_file, chunk_index, text, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	// Established embedding dimension per collection, discovered lazily
	// inside the transaction.
	dims := make(map[string]int)

	now := time.Now().UTC()
	for i := range chunks {
		chunk := &chunks[i]

		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has empty embedding: %w", chunk.ID, domain.ErrDimMismatch)
		}

		dim, ok := dims[chunk.CollectionID]
		if !ok {
			dim, err = collectionDim(ctx, tx, chunk.CollectionID)
			if err != nil {
				return err
			}
			if dim == 0 {
				dim = len(chunk.Embedding)
			}
			dims[chunk.CollectionID] = dim
		}
		if len(chunk.Embedding) != dim {
			return fmt.Errorf("chunk %s has %d dims, collection expects %d: %w",
				chunk.ID, len(chunk.Embedding), dim, domain.ErrDimMismatch)
		}

		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.CollectionID, chunk.SourceFile,
			chunk.ChunkIndex, chunk.Text, float32SliceToBytes(chunk.Embedding),
			string(metadataJSON), createdAt, now); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// collectionDim reads the collection's established embedding dimension
// from any existing chunk row, 0 when the collection is empty.
func collectionDim(ctx context.Context, tx *sql.Tx, collectionID string) (int, error) {
	var blobLen int
	err := tx.QueryRowContext(ctx,
		"SELECT length(embedding) FROM chunks WHERE collection_id = ? LIMIT 1",
		collectionID).Scan(&blobLen)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection dimension: %w", err)
	}
	return blobLen / 4, nil
}

// GetChunk retrieves a chunk by id.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.MemoryChunk, error) {
	row := s.db.QueryRowContext(ctx, chunkSelect+" WHERE id = ?", id)
	return scanChunkRow(row)
}

// GetChunksByCollection returns all chunks for a collection in
// insertion order.
func (s *Store) GetChunksByCollection(ctx context.Context, collectionID string) ([]domain.MemoryChunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelect+" WHERE collection_id = ? ORDER BY rowid", collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetAllChunks returns every stored chunk across collections.
func (s *Store) GetAllChunks(ctx context.Context) ([]domain.MemoryChunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelect+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetChunksBySourceFile returns a file's chunks ordered by chunk index.
func (s *Store) GetChunksBySourceFile(ctx context.Context, sourceFile string) ([]domain.MemoryChunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelect+" WHERE source_file = ? ORDER BY chunk_index", sourceFile)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteChunk removes a chunk by id.
func (s *Store) DeleteChunk(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting chunk: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting chunk: %w", err)
	}
	return n > 0, nil
}

// DeleteChunksBySource removes all chunks for a source file.
func (s *Store) DeleteChunksBySource(ctx context.Context, sourceFile string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_file = ?", sourceFile)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks by source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting chunks by source: %w", err)
	}
	return int(n), nil
}

// ListFiles returns per-file chunk counts grouped and name-ordered.
func (s *Store) ListFiles(ctx context.Context, collectionID string) ([]domain.FileEntry, error) {
	query := "SELECT source_file, COUNT(*) FROM chunks"
	var args []any
	if collectionID != "" {
		query += " WHERE collection_id = ?"
		args = append(args, collectionID)
	}
	query += " GROUP BY source_file ORDER BY source_file"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.FileEntry
		if err := rows.Scan(&f.SourceFile, &f.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning file entry: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return files, nil
}

// ==================== Keyword search ====================

// KeywordSearch runs a BM25 full-text query over chunk text. The query
// is matched as a quoted phrase; results come back ordered by the
// engine's rank ascending (lower is better).
func (s *Store) KeywordSearch(ctx context.Context, query, collectionID string, limit int) ([]domain.KeywordHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, bm25(chunks_fts)
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?`
	args := []any{phraseQuery(query)}
	if collectionID != "" {
		sqlQuery += " AND c.collection_id = ?"
		args = append(args, collectionID)
	}
	sqlQuery += " ORDER BY bm25(chunks_fts) LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []domain.KeywordHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.KeywordHit
		if err := rows.Scan(&hit.ChunkID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword hits: %w", err)
	}

	return hits, nil
}

// phraseQuery wraps a free-text query as a quoted FTS5 phrase,
// doubling internal double-quotes.
func phraseQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// ==================== Stats ====================

// UpdateCollectionStats recomputes the collection's file and chunk
// counts and bumps its updated timestamp.
func (s *Store) UpdateCollectionStats(ctx context.Context, collectionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE collections SET
			file_count = (SELECT COUNT(DISTINCT source_file) FROM chunks WHERE collection_id = collections.id),
			chunk_count = (SELECT COUNT(*) FROM chunks WHERE collection_id = collections.id),
			updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), collectionID)
	if err != nil {
		return fmt.Errorf("updating collection stats: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

const chunkSelect = `
	SELECT id, collection_id, source_file, chunk_index, text, embedding, metadata, created_at, updated_at
	FROM chunks`

// float32SliceToBytes converts a []float32 to its little-endian byte
// image for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice reinterprets a stored byte image as []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullString converts an empty string to NULL for storage.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanCollection scans a single collection row.
func scanCollection(row *sql.Row) (*domain.Collection, error) {
	var col domain.Collection
	var description sql.NullString
	if err := row.Scan(&col.ID, &col.Name, &description, &col.FileCount,
		&col.ChunkCount, &col.CreatedAt, &col.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}
	col.Description = description.String
	return &col, nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.MemoryChunk, error) {
	var chunk domain.MemoryChunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := row.Scan(&chunk.ID, &chunk.CollectionID, &chunk.SourceFile, &chunk.ChunkIndex,
		&chunk.Text, &embeddingBlob, &metadataJSON, &chunk.CreatedAt, &chunk.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

// scanChunks scans multiple chunk rows.
func scanChunks(rows *sql.Rows) ([]domain.MemoryChunk, error) {
	var chunks []domain.MemoryChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.MemoryChunk
		var embeddingBlob []byte
		var metadataJSON string

		if err := rows.Scan(&chunk.ID, &chunk.CollectionID, &chunk.SourceFile, &chunk.ChunkIndex,
			&chunk.Text, &embeddingBlob, &metadataJSON, &chunk.CreatedAt, &chunk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}
