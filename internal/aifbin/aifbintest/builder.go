// Package aifbintest builds .aif-bin byte images for tests.
package aifbintest

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"

	"github.com/Terronex-dev/aifbin-recall/internal/aifbin"
)

// Chunk is one content chunk to encode.
type Chunk struct {
	Type     uint32
	Data     []byte
	Metadata map[string]any
}

// TextChunk builds a TEXT chunk with an embedding in its metadata.
func TextChunk(text string, embedding []float32, extra map[string]any) Chunk {
	meta := map[string]any{}
	for k, v := range extra {
		meta[k] = v
	}
	if embedding != nil {
		vals := make([]any, len(embedding))
		for i, v := range embedding {
			vals[i] = v
		}
		meta["embedding"] = vals
	}
	return Chunk{Type: aifbin.ChunkTypeText, Data: []byte(text), Metadata: meta}
}

// Build encodes a complete memory file image with the given file
// metadata and chunks. Panics on CBOR encoding failure, which only
// test inputs can cause.
func Build(fileMeta map[string]any, chunks []Chunk) []byte {
	var metaPayload []byte
	if fileMeta != nil {
		var err error
		metaPayload, err = cbor.Marshal(fileMeta)
		if err != nil {
			panic(err)
		}
	}

	chunkPayload := buildChunkPayload(chunks)

	// Header, then sections in table order.
	out := make([]byte, aifbin.HeaderSize)
	copy(out, aifbin.Magic[:])
	binary.LittleEndian.PutUint32(out[8:], 1)

	offsets := [6]uint64{}
	for i := range offsets {
		offsets[i] = aifbin.AbsentSection
	}

	if metaPayload != nil {
		offsets[0] = uint64(len(out))
		out = appendSection(out, metaPayload)
	}
	offsets[2] = uint64(len(out))
	out = appendSection(out, chunkPayload)
	offsets[5] = uint64(len(out))

	for i, off := range offsets {
		binary.LittleEndian.PutUint64(out[16+i*8:], off)
	}
	return out
}

// BuildRaw is Build with a pre-encoded chunk payload, for malformed
// stream tests.
func BuildRaw(chunkPayload []byte) []byte {
	out := make([]byte, aifbin.HeaderSize)
	copy(out, aifbin.Magic[:])
	binary.LittleEndian.PutUint32(out[8:], 1)

	offsets := [6]uint64{}
	for i := range offsets {
		offsets[i] = aifbin.AbsentSection
	}
	offsets[2] = uint64(len(out))
	out = appendSection(out, chunkPayload)
	offsets[5] = uint64(len(out))

	for i, off := range offsets {
		binary.LittleEndian.PutUint64(out[16+i*8:], off)
	}
	return out
}

// ChunkPayload encodes the content-chunks section payload.
func ChunkPayload(chunks []Chunk) []byte {
	return buildChunkPayload(chunks)
}

func buildChunkPayload(chunks []Chunk) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(len(chunks)))

	for _, c := range chunks {
		metaBytes, err := cbor.Marshal(c.Metadata)
		if err != nil {
			panic(err)
		}

		header := make([]byte, 20)
		binary.LittleEndian.PutUint32(header, c.Type)
		binary.LittleEndian.PutUint64(header[4:], uint64(len(c.Data)))
		binary.LittleEndian.PutUint64(header[12:], uint64(len(metaBytes)))

		payload = append(payload, header...)
		payload = append(payload, metaBytes...)
		payload = append(payload, c.Data...)
	}
	return payload
}

func appendSection(out, payload []byte) []byte {
	length := make([]byte, 8)
	binary.LittleEndian.PutUint64(length, uint64(len(payload)))
	out = append(out, length...)
	return append(out, payload...)
}
