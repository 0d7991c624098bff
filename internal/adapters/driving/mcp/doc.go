// Package mcp exposes the recall facade to AI-agent hosts over the
// Model Context Protocol: four tools (recall_search, recall_get,
// recall_collections, recall_index) served over stdio or streamable
// HTTP. Tool failures come back as text content with is_error set
// rather than protocol errors, so hosts can show them to the model.
package mcp
