package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Terronex-dev/aifbin-recall/internal/aifbin"
	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
	"github.com/Terronex-dev/aifbin-recall/internal/logger"
)

// MemoryFileExt is the file suffix the indexer ingests.
const MemoryFileExt = ".aif-bin"

// watchDebounce coalesces rapid write events for one file.
const watchDebounce = 250 * time.Millisecond

// Indexer converts parsed memory files into stored chunks with
// idempotent replace-by-source semantics. One bad file never corrupts
// another: the worst case is a logged skip.
type Indexer struct {
	store  driven.Store
	parser *aifbin.Parser

	// Progress, when set, is called once per ingested file with the
	// number of chunks inserted. Skipped files report 0.
	Progress func(path string, chunks int)
}

// NewIndexer creates an indexer writing through the store.
func NewIndexer(store driven.Store, parser *aifbin.Parser) *Indexer {
	if parser == nil {
		parser = aifbin.NewParser()
	}
	return &Indexer{store: store, parser: parser}
}

// IndexDirectory walks dir for memory files and ingests each into the
// named collection, created on demand. Non-recursive mode reads one
// level. Returns the number of files that contributed chunks and the
// total chunks inserted.
func (ix *Indexer) IndexDirectory(
	ctx context.Context, dir, collection string, recursive bool,
) (filesIndexed, chunksIndexed int, err error) {
	col, err := ix.ensureCollection(ctx, collection)
	if err != nil {
		return 0, 0, err
	}

	files, err := ix.findMemoryFiles(dir, recursive)
	if err != nil {
		return 0, 0, err
	}
	logger.Info("Indexing %d memory files from %s", len(files), dir)

	for _, path := range files {
		n, err := ix.ingestFile(ctx, path, col.ID)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			n = 0
		}
		if ix.Progress != nil {
			ix.Progress(path, n)
		}
		if n > 0 {
			filesIndexed++
			chunksIndexed += n
		}
	}

	if err := ix.store.UpdateCollectionStats(ctx, col.ID); err != nil {
		return filesIndexed, chunksIndexed, fmt.Errorf("updating collection stats: %w", err)
	}

	return filesIndexed, chunksIndexed, nil
}

// IndexFile ingests a single memory file into the named collection and
// refreshes the collection's stats.
func (ix *Indexer) IndexFile(ctx context.Context, path, collection string) (int, error) {
	col, err := ix.ensureCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	n, err := ix.ingestFile(ctx, path, col.ID)
	if err != nil {
		return 0, err
	}

	if err := ix.store.UpdateCollectionStats(ctx, col.ID); err != nil {
		return n, fmt.Errorf("updating collection stats: %w", err)
	}
	return n, nil
}

// ingestFile parses one file and atomically replaces its prior chunks.
func (ix *Indexer) ingestFile(ctx context.Context, path, collectionID string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	parsed, err := ix.parser.Parse(absPath)
	if parsed == nil {
		return 0, fmt.Errorf("parsing: %w", err)
	}
	if err != nil {
		// A mid-stream chunk error preserves the chunks decoded before
		// it; ingest the partial result.
		logger.Warn("Partial parse of %s: %v", absPath, err)
	}
	if parsed.MetadataErr != nil {
		logger.Warn("Ignoring metadata of %s: %v", absPath, parsed.MetadataErr)
	}

	chunks := buildChunks(parsed, absPath, collectionID)
	if len(chunks) == 0 {
		logger.Debug("No embedded chunks in %s, skipping", absPath)
		return 0, nil
	}

	// Replace-by-source: drop prior chunks so re-ingestion is
	// idempotent.
	if _, err := ix.store.DeleteChunksBySource(ctx, absPath); err != nil {
		return 0, fmt.Errorf("replacing prior chunks: %w", err)
	}

	if err := ix.store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("inserting chunks: %w", err)
	}

	logger.Debug("Ingested %d chunks from %s", len(chunks), absPath)
	return len(chunks), nil
}

// buildChunks materializes store records from parsed chunks, keeping
// only those carrying embeddings. Chunk indices number the filtered
// stream.
func buildChunks(parsed *aifbin.ParsedFile, absPath, collectionID string) []domain.MemoryChunk {
	chunks := make([]domain.MemoryChunk, 0, len(parsed.Chunks))
	for _, pc := range parsed.Chunks {
		if len(pc.Embedding) == 0 {
			continue
		}

		metadata := make(map[string]any, len(pc.Metadata)+3)
		for k, v := range pc.Metadata {
			metadata[k] = v
		}
		metadata["embedding_dim"] = len(pc.Embedding)
		if v, ok := parsed.Metadata["created_at"]; ok {
			metadata["original_created_at"] = v
		}
		if v, ok := parsed.Metadata["modified_at"]; ok {
			metadata["original_modified_at"] = v
		}

		chunks = append(chunks, domain.MemoryChunk{
			ID:           pc.ID,
			CollectionID: collectionID,
			SourceFile:   absPath,
			ChunkIndex:   len(chunks),
			Text:         pc.Text,
			Embedding:    pc.Embedding,
			Metadata:     metadata,
		})
	}
	return chunks
}

// ensureCollection fetches the named collection, creating it when
// absent.
func (ix *Indexer) ensureCollection(ctx context.Context, name string) (*domain.Collection, error) {
	col, err := ix.store.GetCollection(ctx, name)
	if err == nil {
		return col, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	col, err = ix.store.CreateCollection(ctx, name, "")
	if errors.Is(err, domain.ErrAlreadyExists) {
		return ix.store.GetCollection(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return col, nil
}

// findMemoryFiles lists the memory files under dir, sorted for
// deterministic ingestion order.
func (ix *Indexer) findMemoryFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), MemoryFileExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), MemoryFileExt) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// WatchDirectory re-ingests memory files as they change on disk,
// blocking until the context is cancelled. Writes and creates trigger
// a debounced re-index of the file; removals drop its chunks.
func (ix *Indexer) WatchDirectory(ctx context.Context, dir, collection string, recursive bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != dir {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("watching subdirectories: %w", err)
		}
	}

	logger.Info("Watching %s for memory file changes", dir)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	reindex := make(chan string)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path := <-reindex:
			delete(pending, path)
			if n, err := ix.IndexFile(ctx, path, collection); err != nil {
				logger.Warn("Re-indexing %s failed: %v", path, err)
			} else {
				logger.Info("Re-indexed %s (%d chunks)", path, n)
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, MemoryFileExt) {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
				path := event.Name
				if t, ok := pending[path]; ok {
					t.Stop()
				}
				pending[path] = time.AfterFunc(watchDebounce, func() {
					select {
					case reindex <- path:
					case <-ctx.Done():
					}
				})

			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				absPath, err := filepath.Abs(event.Name)
				if err != nil {
					continue
				}
				if n, err := ix.store.DeleteChunksBySource(ctx, absPath); err != nil {
					logger.Warn("Dropping chunks for %s failed: %v", absPath, err)
				} else if n > 0 {
					logger.Info("Dropped %d chunks for removed %s", n, absPath)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}
