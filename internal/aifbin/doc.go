// Package aifbin decodes .aif-bin semantic memory files: a fixed
// 64-byte header with a section offset table, followed by CBOR-encoded
// metadata and a stream of typed content chunks carrying text and
// pre-computed embeddings.
package aifbin
