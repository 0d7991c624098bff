package aifbin

// Magic is the 8-byte prefix of every memory file ("AIFBIN\x00\x01").
var Magic = [8]byte{0x41, 0x49, 0x46, 0x42, 0x49, 0x4E, 0x00, 0x01}

// HeaderSize is the total fixed header length in bytes.
const HeaderSize = 64

// AbsentSection marks an unused slot in the section offset table.
const AbsentSection = 0xFFFFFFFFFFFFFFFF

// Chunk types defined by the format. Text is extracted from TEXT and
// CODE chunks directly and from TABLE_JSON chunks as canonicalized
// JSON; the remaining types carry no indexable text but may still
// carry embeddings.
const (
	ChunkTypeText      uint32 = 1
	ChunkTypeTableJSON uint32 = 2
	ChunkTypeImage     uint32 = 3
	ChunkTypeAudio     uint32 = 4
	ChunkTypeVideo     uint32 = 5
	ChunkTypeCode      uint32 = 6
)

// sectionCount is the number of u64 slots in the header offset table:
// metadata, original-raw, content-chunks, versions, footer, total-size.
const sectionCount = 6

// Indices into the header offset table.
const (
	sectionMetadata = iota
	sectionOriginalRaw
	sectionContentChunks
	sectionVersions
	sectionFooter
	sectionTotalSize
)

// ParsedChunk is one decoded content chunk.
type ParsedChunk struct {
	// ID is the chunk's stable identifier, taken from metadata key
	// "id" or derived deterministically when absent.
	ID string

	// Type is the chunk type tag.
	Type uint32

	// Text is the extracted text content. Empty for media chunks.
	Text string

	// Embedding is the dense vector from metadata key "embedding".
	// Empty when the chunk carries none.
	Embedding []float32

	// Metadata is the chunk's decoded metadata map, minus the
	// embedding vector which is hoisted into Embedding.
	Metadata map[string]any
}

// ParsedFile is the decoded form of one memory file.
type ParsedFile struct {
	// Path is the file the bytes came from.
	Path string

	// Version is the format version from the header.
	Version uint32

	// Metadata is the file-level metadata map. Empty (never nil) when
	// the section is absent or failed to decode.
	Metadata map[string]any

	// MetadataErr records a tolerated metadata decode failure.
	// Chunks are independent of file metadata, so this is not fatal.
	MetadataErr error

	// Chunks are the decoded content chunks, in file order.
	Chunks []ParsedChunk

	// FooterOffset is the footer section offset when present.
	// The footer is informational; no checksum validation is defined
	// or performed.
	FooterOffset uint64

	// HasFooter reports whether the footer slot was populated.
	HasFooter bool

	// TotalSize is the total-size slot from the offset table when
	// present.
	TotalSize uint64
}
