package domain

// Chunk is one segment of source text produced during an ingestion run.
// Chunks live only in memory; each one is consumed into an EmbeddingRecord
// within the same run. Index is 0-based and contiguous over the final list.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}
