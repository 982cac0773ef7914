package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"FinSage/internal/domain/models"
)

// Embedder produces query and passage vectors in one space.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

const collectionName = "corpus"

// snapshot is an immutable view of the corpus: chunk slice sorted by
// id, a lexical index over it, and an in-memory vector collection.
// Never mutated after build; readers share it freely.
type snapshot struct {
	chunks  []models.DocumentChunk
	byID    map[string]int
	lex     *lexicalIndex
	col     *chromem.Collection
	builtAt time.Time
}

func buildSnapshot(ctx context.Context, chunks []models.DocumentChunk, embedder Embedder) (*snapshot, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("snapshot needs at least one chunk")
	}

	sorted := make([]models.DocumentChunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]int, len(sorted))
	for i, c := range sorted {
		if c.ID == "" {
			return nil, fmt.Errorf("chunk at position %d has empty id", i)
		}
		if c.Text == "" {
			return nil, fmt.Errorf("chunk %s has empty text", c.ID)
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %s", c.ID)
		}
		byID[c.ID] = i
	}

	if err := embedMissing(ctx, sorted, embedder); err != nil {
		return nil, err
	}
	dim := len(sorted[0].Embedding)
	for _, c := range sorted {
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("chunk %s embedding has %d dims, corpus has %d", c.ID, len(c.Embedding), dim)
		}
	}

	col, err := buildCollection(ctx, sorted, embedder)
	if err != nil {
		return nil, err
	}

	return &snapshot{
		chunks:  sorted,
		byID:    byID,
		lex:     buildLexicalIndex(sorted),
		col:     col,
		builtAt: time.Now(),
	}, nil
}

// embedMissing fills in vectors for chunks the ingestion pipeline left
// without one, in a single batch.
func embedMissing(ctx context.Context, chunks []models.DocumentChunk, embedder Embedder) error {
	var positions []int
	var texts []string
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			positions = append(positions, i)
			texts = append(texts, c.Text)
		}
	}
	if len(positions) == 0 {
		return nil
	}

	vecs, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	for j, pos := range positions {
		chunks[pos].Embedding = vecs[j]
	}
	return nil
}

func buildCollection(ctx context.Context, chunks []models.DocumentChunk, embedder Embedder) (*chromem.Collection, error) {
	db := chromem.NewDB()
	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: map[string]string{
				"regulator": c.Metadata.Regulator,
				"doc_type":  c.Metadata.DocType,
			},
			Embedding: c.Embedding,
		}
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	return col, nil
}

// semantic returns chunk id to cosine similarity for the top k chunks.
func (s *snapshot) semantic(ctx context.Context, queryVec []float32, k int) (map[string]float64, error) {
	// chromem rejects k above the collection size
	if count := s.col.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return map[string]float64{}, nil
	}

	results, err := s.col.QueryEmbedding(ctx, queryVec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = float64(r.Similarity)
	}
	return scores, nil
}
