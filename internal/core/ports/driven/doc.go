// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// The core services depend on these interfaces; the concrete
// implementations live under internal/adapters/driven:
//
//   - Store: SQLite-backed persistent index
//   - EmbeddingService: local sentence-encoder binding
package driven
