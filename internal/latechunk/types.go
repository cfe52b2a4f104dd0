package latechunk

import (
	"kbchat/internal/boundary"
	"kbchat/internal/vecmath"
)

// ChunkMetadata carries the structural flags and offsets of a chunk.
type ChunkMetadata struct {
	HasHeader   bool `json:"has_header"`
	IsQAPair    bool `json:"is_qa_pair"`
	IsTable     bool `json:"is_table"`
	IsList      bool `json:"is_list"`
	StartOffset int  `json:"start_offset"`
	EndOffset   int  `json:"end_offset"`
}

// Metadata describes how a chunk's embedding was derived.
type Metadata struct {
	// PoolingStrategy is the strategy that produced the embedding.
	PoolingStrategy vecmath.PoolingStrategy `json:"pooling_strategy"`
	// SourceSegmentCount is the number of document segments that
	// contributed to the pooled vector.
	SourceSegmentCount int `json:"source_segment_count"`
	// EstimatedTokens is the chunk's own token estimate.
	EstimatedTokens int `json:"estimated_tokens"`
	// DocumentSimilarity is the cosine similarity between the chunk's
	// pooled embedding and the whole-document embedding.
	DocumentSimilarity float32 `json:"document_similarity"`
}

// Chunk is the unit of retrieval produced by the engine. Its embedding is
// always pooled from the document-level embedding pass, never from
// embedding the chunk text in isolation.
type Chunk struct {
	Index        int
	Content      string
	Embedding    []float32
	QualityScore int
	Metadata     ChunkMetadata
	LateChunking Metadata
}

func chunkMetadataFromSpan(s boundary.Span) ChunkMetadata {
	return ChunkMetadata{
		HasHeader:   s.HasHeader,
		IsQAPair:    s.IsQAPair,
		IsTable:     s.IsTable,
		IsList:      s.IsList,
		StartOffset: s.Start,
		EndOffset:   s.End,
	}
}
