package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/embeddings"
	"FinSage/pkg/logger"
)

func testIndex(t *testing.T, cfg Config) *Index {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return NewIndex(cfg, embeddings.NewHashing(0), log)
}

func chunk(id, text string) models.DocumentChunk {
	return models.DocumentChunk{
		ID:          id,
		SourceDocID: "doc-" + id,
		Text:        text,
		Metadata:    models.ChunkMetadata{Regulator: "SEBI", DocType: "regulation"},
	}
}

func testCorpus() []models.DocumentChunk {
	return []models.DocumentChunk{
		chunk("c1", "Insider trading in securities is prohibited under SEBI regulations and attracts penalties up to twenty five crore rupees."),
		chunk("c2", "Every broker must complete KYC verification of the client before opening a trading account as per SEBI norms."),
		chunk("c3", "Margin requirements for intraday equity trading are set by the exchange and reviewed by SEBI periodically."),
		chunk("c4", "Mutual fund distributors must disclose commissions to investors under SEBI disclosure requirements."),
		chunk("c5", "Front running by intermediaries is a fraudulent and unfair trade practice under SEBI regulations."),
	}
}

func TestRetrieveBeforeSnapshotFails(t *testing.T) {
	ix := testIndex(t, Config{})

	_, err := ix.Retrieve(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, drepo.ErrIndexNotReady)
}

func TestRetrieveRanksOnTopicChunksFirst(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	results, err := ix.Retrieve(ctx, "what is the penalty for insider trading", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestRetrieveDeterministic(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	first, err := ix.Retrieve(ctx, "broker kyc obligations", 4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ix.Retrieve(ctx, "broker kyc obligations", 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieveClampsKToCorpusSize(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	results, err := ix.Retrieve(ctx, "sebi trading regulations", 50)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 5)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	_, err := ix.Retrieve(ctx, "", 3)
	require.Error(t, err)
}

func TestMMRSuppressesNearDuplicates(t *testing.T) {
	corpus := testCorpus()
	dup := chunk("c1dup", "Insider trading in securities is prohibited under SEBI regulations and attracts penalties up to twenty five crore rupees.")
	corpus = append(corpus, dup)

	ix := testIndex(t, Config{MMRSimilarityMax: 0.95})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, corpus))

	results, err := ix.Retrieve(ctx, "insider trading penalty", 3)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range results {
		seen[r.ChunkID] = true
	}
	// The byte-identical duplicate must not appear alongside the original.
	assert.False(t, seen["c1"] && seen["c1dup"], "near duplicates both selected: %v", seen)
}

func TestInstallSnapshotSwapsAtomically(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	st := ix.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, 5, st.Chunks)

	smaller := []models.DocumentChunk{
		chunk("n1", "Circuit breakers halt trading when an index moves ten percent in a session."),
	}
	require.NoError(t, ix.InstallSnapshot(ctx, smaller))

	results, err := ix.Retrieve(ctx, "trading halt circuit breaker", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].ChunkID)
	assert.Equal(t, 1, ix.Status().Chunks)
}

func TestInstallSnapshotRejectsBadCorpus(t *testing.T) {
	ix := testIndex(t, Config{})
	ctx := context.Background()

	require.Error(t, ix.InstallSnapshot(ctx, nil))
	require.Error(t, ix.InstallSnapshot(ctx, []models.DocumentChunk{
		chunk("a", "text"), chunk("a", "other text"),
	}))
	require.Error(t, ix.InstallSnapshot(ctx, []models.DocumentChunk{chunk("b", "")}))
}

func TestRetrieveScoresDescendWithRank(t *testing.T) {
	ix := testIndex(t, Config{MMRLambda: 1})
	ctx := context.Background()
	require.NoError(t, ix.InstallSnapshot(ctx, testCorpus()))

	results, err := ix.Retrieve(ctx, "sebi regulations for brokers", 5)
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}
