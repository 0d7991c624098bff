package aifbin

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// IDSource synthesizes a chunk id when the chunk's metadata carries
// none. Implementations must be deterministic for fixed inputs.
type IDSource func(sourceFile string, chunkIndex int, text string) string

// chunkNamespace is the UUID namespace for derived chunk ids.
var chunkNamespace = uuid.MustParse("9d2c8b7e-0f41-4c6a-9f2d-3a5e1b8c4d70")

// DeriveChunkID deterministically derives a chunk id from the source
// path, the chunk's position, and a hash of its text. Re-parsing
// byte-identical input always yields the same id.
func DeriveChunkID(sourceFile string, chunkIndex int, text string) string {
	sum := sha256.Sum256([]byte(text))
	name := fmt.Sprintf("%s|%d|%x", sourceFile, chunkIndex, sum)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Parser decodes memory files. The zero value is usable; IDSource
// defaults to DeriveChunkID.
type Parser struct {
	// IDSource supplies ids for chunks whose metadata lacks one.
	IDSource IDSource
}

// NewParser returns a Parser with the deterministic default IDSource.
func NewParser() *Parser {
	return &Parser{IDSource: DeriveChunkID}
}

// Parse reads and decodes the memory file at path.
//
// A malformed chunk mid-stream stops chunk decoding but preserves the
// chunks decoded before it: in that case both a partial ParsedFile and
// a non-nil error are returned. Header-level failures return a nil
// ParsedFile.
func (p *Parser) Parse(path string) (*ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading memory file: %w", err)
	}
	return p.ParseBytes(path, data)
}

// ParseBytes decodes an in-memory image of a memory file.
func (p *Parser) ParseBytes(path string, data []byte) (*ParsedFile, error) {
	if len(data) < HeaderSize {
		return nil, &ParseError{Path: path, Offset: 0, Reason: "truncated header", Err: ErrTooSmall}
	}
	if [8]byte(data[:8]) != Magic {
		return nil, &ParseError{Path: path, Offset: 0, Reason: "magic mismatch", Err: ErrBadMagic}
	}

	pf := &ParsedFile{
		Path:     path,
		Version:  binary.LittleEndian.Uint32(data[8:12]),
		Metadata: map[string]any{},
	}

	var offsets [sectionCount]uint64
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(data[16+i*8:])
	}
	if off := offsets[sectionFooter]; off != AbsentSection {
		pf.HasFooter = true
		pf.FooterOffset = off
	}
	if sz := offsets[sectionTotalSize]; sz != AbsentSection {
		pf.TotalSize = sz
	}

	if off := offsets[sectionMetadata]; off != AbsentSection {
		payload, err := sectionPayload(path, data, off)
		if err != nil {
			// Tolerated: chunks are independent of file metadata.
			pf.MetadataErr = err
		} else if meta, err := decodeMetadata(payload); err != nil {
			pf.MetadataErr = err
		} else {
			pf.Metadata = meta
		}
	}

	if off := offsets[sectionContentChunks]; off != AbsentSection {
		payload, err := sectionPayload(path, data, off)
		if err != nil {
			return pf, err
		}
		chunks, err := p.decodeChunks(path, off, payload)
		pf.Chunks = chunks
		if err != nil {
			return pf, err
		}
	}

	return pf, nil
}

// sectionPayload bounds-checks a section at off and returns its
// length-prefixed payload.
func sectionPayload(path string, data []byte, off uint64) ([]byte, error) {
	if off+8 < off || off+8 > uint64(len(data)) {
		return nil, &ParseError{Path: path, Offset: off, Reason: "section offset out of range"}
	}
	length := binary.LittleEndian.Uint64(data[off:])
	start := off + 8
	if start+length < start || start+length > uint64(len(data)) {
		return nil, &ParseError{Path: path, Offset: off, Reason: "section payload out of range"}
	}
	return data[start : start+length], nil
}

// decodeMetadata unmarshals a CBOR map payload.
func decodeMetadata(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	var meta map[string]any
	if err := cbor.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, nil
}

// decodeChunks decodes the content-chunks payload: a u32 chunk count
// followed by (type, data length, metadata length, metadata, data)
// records. A malformed record stops decoding; chunks decoded before it
// are returned with the error.
func (p *Parser) decodeChunks(path string, base uint64, payload []byte) ([]ParsedChunk, error) {
	idSource := p.IDSource
	if idSource == nil {
		idSource = DeriveChunkID
	}

	if len(payload) < 4 {
		return nil, &ParseError{Path: path, Offset: base, Reason: "chunk count truncated"}
	}
	count := binary.LittleEndian.Uint32(payload)

	// Each record needs at least its 20-byte header, which bounds how
	// many chunks the payload can actually hold; a hostile count must
	// not size the allocation.
	maxPossible := uint64(len(payload)-4) / 20
	capHint := uint64(count)
	if capHint > maxPossible {
		capHint = maxPossible
	}
	chunks := make([]ParsedChunk, 0, capHint)

	pos := uint64(4)
	for i := uint32(0); i < count; i++ {
		if pos+20 > uint64(len(payload)) {
			return chunks, &ParseError{Path: path, Offset: base + pos, Reason: fmt.Sprintf("chunk %d header truncated", i)}
		}
		chunkType := binary.LittleEndian.Uint32(payload[pos:])
		dataLen := binary.LittleEndian.Uint64(payload[pos+4:])
		metaLen := binary.LittleEndian.Uint64(payload[pos+12:])
		pos += 20

		if metaLen+dataLen < metaLen || pos+metaLen+dataLen > uint64(len(payload)) {
			return chunks, &ParseError{Path: path, Offset: base + pos, Reason: fmt.Sprintf("chunk %d body out of range", i)}
		}
		metaBytes := payload[pos : pos+metaLen]
		pos += metaLen
		dataBytes := payload[pos : pos+dataLen]
		pos += dataLen

		chunk, err := p.decodeChunk(path, base+pos, int(i), chunkType, metaBytes, dataBytes, idSource)
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, *chunk)
	}

	return chunks, nil
}

// decodeChunk decodes a single chunk record.
func (p *Parser) decodeChunk(
	path string, offset uint64, index int, chunkType uint32,
	metaBytes, dataBytes []byte, idSource IDSource,
) (*ParsedChunk, error) {
	meta, err := decodeMetadata(metaBytes)
	if err != nil {
		return nil, &ParseError{Path: path, Offset: offset, Reason: fmt.Sprintf("chunk %d metadata", index), Err: err}
	}

	chunk := ParsedChunk{Type: chunkType, Metadata: meta}

	switch chunkType {
	case ChunkTypeText, ChunkTypeCode:
		chunk.Text = string(dataBytes)
	case ChunkTypeTableJSON:
		text, err := canonicalJSON(dataBytes)
		if err != nil {
			return nil, &ParseError{Path: path, Offset: offset, Reason: fmt.Sprintf("chunk %d table json", index), Err: err}
		}
		chunk.Text = text
	}

	if raw, ok := meta["embedding"]; ok {
		vec, err := toFloat32Slice(raw)
		if err != nil {
			return nil, &ParseError{Path: path, Offset: offset, Reason: fmt.Sprintf("chunk %d embedding", index), Err: err}
		}
		chunk.Embedding = vec
		delete(meta, "embedding")
	}

	if id, ok := meta["id"].(string); ok && id != "" {
		chunk.ID = id
	} else {
		chunk.ID = idSource(path, index, chunk.Text)
	}

	return &chunk, nil
}

// canonicalJSON re-stringifies a JSON value in compact canonical form
// (object keys sorted, no insignificant whitespace).
func canonicalJSON(data []byte) (string, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", fmt.Errorf("decoding json: %w", err)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding json: %w", err)
	}
	return string(out), nil
}

// toFloat32Slice converts a decoded CBOR number sequence to []float32.
func toFloat32Slice(raw any) ([]float32, error) {
	items, ok := raw.([]any)
	if !ok {
		if f32s, ok := raw.([]float32); ok {
			return f32s, nil
		}
		if f64s, ok := raw.([]float64); ok {
			out := make([]float32, len(f64s))
			for i, v := range f64s {
				out[i] = float32(v)
			}
			return out, nil
		}
		return nil, fmt.Errorf("embedding is %T, want number sequence", raw)
	}

	out := make([]float32, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case float64:
			out[i] = float32(v)
		case float32:
			out[i] = v
		case int64:
			out[i] = float32(v)
		case uint64:
			out[i] = float32(v)
		default:
			return nil, fmt.Errorf("embedding element %d is %T, want number", i, item)
		}
	}
	return out, nil
}
