package document

// Page is one page of extracted document text.
type Page struct {
	Text   string `json:"text"`
	Number int    `json:"number"` // 1-based
}

// Chunk is a retrievable unit of a document. Vector is nil until the
// chunk has been embedded.
type Chunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Source     string         `json:"source"`
	PageNumber int            `json:"page_number"`
	Vector     []float32      `json:"vector,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// Metadata keys written by the chunker.
const (
	MetaTokenCount = "TokenCount"
	MetaMethod     = "Method"
	MetaChunkIndex = "ChunkIndex"
)

// Clone returns a deep copy of the chunk so stores never share the
// caller's slices or maps.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Vector != nil {
		out.Vector = make([]float32, len(c.Vector))
		copy(out.Vector, c.Vector)
	}
	out.Metadata = copyMetadata(c.Metadata)
	return out
}

func copyMetadata(metadata map[string]any) map[string]any {
	copy := make(map[string]any, len(metadata))
	for k, v := range metadata {
		copy[k] = v
	}
	return copy
}
