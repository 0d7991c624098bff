// Package services implements the core retrieval pipeline: the search
// engine (vector, keyword, and hybrid ranking), the ingestion indexer,
// and the Recall facade the transports bind to.
//
// Services depend only on domain types and driven ports; they hold no
// state beyond their injected collaborators and are safe for
// concurrent use.
package services
