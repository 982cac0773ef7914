package models

import "time"

// ChunkMetadata describes the regulatory provenance of a document chunk.
type ChunkMetadata struct {
	Regulator     string    `json:"regulator"`
	DocType       string    `json:"doc_type"`
	EffectiveDate time.Time `json:"effective_date,omitempty"`
}

// DocumentChunk is one passage of the regulatory corpus. Created by the
// ingestion pipeline; read-only here. Embedding is precomputed at ingestion
// and may be empty, in which case the index embeds the text on snapshot build.
type DocumentChunk struct {
	ID          string        `json:"id"`
	SourceDocID string        `json:"source_doc_id"`
	Text        string        `json:"text"`
	Embedding   []float32     `json:"embedding,omitempty"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// RetrievalResult is one ranked passage. Score is the blended
// lexical+semantic value after diversity re-ranking.
type RetrievalResult struct {
	ChunkID  string        `json:"chunk_id"`
	Score    float64       `json:"score"`
	Rank     int           `json:"rank"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}
