package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/pkg/logger"
)

// Config tunes ranking. Zero values take the defaults below.
type Config struct {
	K                int
	LexicalWeight    float64
	SemanticWeight   float64
	MMRLambda        float64
	MMRSimilarityMax float64
	CandidateFactor  int
}

func (c *Config) applyDefaults() {
	if c.K <= 0 {
		c.K = 5
	}
	if c.LexicalWeight <= 0 && c.SemanticWeight <= 0 {
		c.LexicalWeight = 0.4
		c.SemanticWeight = 0.6
	}
	if c.MMRLambda <= 0 || c.MMRLambda > 1 {
		c.MMRLambda = 0.7
	}
	if c.CandidateFactor <= 0 {
		c.CandidateFactor = 4
	}
}

// Status describes the installed snapshot for the admin surface.
type Status struct {
	Ready   bool      `json:"ready"`
	Chunks  int       `json:"chunks"`
	BuiltAt time.Time `json:"built_at,omitempty"`
}

// Index blends lexical and semantic scores over an atomically swapped
// corpus snapshot, then diversity re-ranks with MMR. Retrieval against
// one snapshot is a pure function of (query, k).
type Index struct {
	cfg      Config
	embedder Embedder
	log      *logger.Logger
	snap     atomic.Pointer[snapshot]
}

func NewIndex(cfg Config, embedder Embedder, log *logger.Logger) *Index {
	cfg.applyDefaults()
	return &Index{cfg: cfg, embedder: embedder, log: log}
}

// InstallSnapshot builds a snapshot from chunks and swaps it in. Readers
// mid-flight keep the snapshot they started with.
func (ix *Index) InstallSnapshot(ctx context.Context, chunks []models.DocumentChunk) error {
	snap, err := buildSnapshot(ctx, chunks, ix.embedder)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	ix.snap.Store(snap)
	ix.log.Info("retrieval snapshot installed", logger.Int("chunks", len(snap.chunks)))
	return nil
}

// Status reports the installed snapshot, if any.
func (ix *Index) Status() Status {
	snap := ix.snap.Load()
	if snap == nil {
		return Status{}
	}
	return Status{Ready: true, Chunks: len(snap.chunks), BuiltAt: snap.builtAt}
}

// Retrieve returns the top k passages for the query. k <= 0 uses the
// configured default.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	snap := ix.snap.Load()
	if snap == nil {
		return nil, drepo.ErrIndexNotReady
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		k = ix.cfg.K
	}

	nCand := k * ix.cfg.CandidateFactor
	if nCand > len(snap.chunks) {
		nCand = len(snap.chunks)
	}

	queryVec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	semScores, err := snap.semantic(ctx, queryVec, nCand)
	if err != nil {
		return nil, err
	}

	qTerms, qNorm := snap.lex.queryVector(query)
	lexScores := make([]float64, len(snap.chunks))
	var lexMax, semMax float64
	for i := range snap.chunks {
		lexScores[i] = snap.lex.score(qTerms, qNorm, i)
		if lexScores[i] > lexMax {
			lexMax = lexScores[i]
		}
	}
	for _, s := range semScores {
		if s > semMax {
			semMax = s
		}
	}

	// Blend max-normalized facets over every chunk that scored on
	// either one, then keep the candidate pool for MMR.
	pool := make([]candidate, 0, len(snap.chunks))
	for i, c := range snap.chunks {
		lex := 0.0
		if lexMax > 0 {
			lex = lexScores[i] / lexMax
		}
		sem := 0.0
		if s, ok := semScores[c.ID]; ok && semMax > 0 && s > 0 {
			sem = s / semMax
		}
		if lex == 0 && sem == 0 {
			continue
		}
		pool = append(pool, candidate{
			pos:       i,
			id:        c.ID,
			relevance: ix.cfg.LexicalWeight*lex + ix.cfg.SemanticWeight*sem,
			embedding: c.Embedding,
		})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].relevance != pool[j].relevance {
			return pool[i].relevance > pool[j].relevance
		}
		return pool[i].id < pool[j].id
	})
	if len(pool) > nCand {
		pool = pool[:nCand]
	}

	picked := maxMarginalRelevance(pool, ix.cfg.MMRLambda, ix.cfg.MMRSimilarityMax, k)

	out := make([]models.RetrievalResult, len(picked))
	for rank, c := range picked {
		chunk := snap.chunks[c.pos]
		out[rank] = models.RetrievalResult{
			ChunkID:  chunk.ID,
			Score:    c.relevance,
			Rank:     rank + 1,
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
		}
	}
	return out, nil
}
