package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.json")
	content := []byte(`[
	  {"id": "c1", "source_doc_id": "sebi-pit-2015", "text": "Insider trading is prohibited.",
	   "metadata": {"regulator": "SEBI", "doc_type": "regulation"}},
	  {"id": "c2", "source_doc_id": "rbi-kyc-2016", "text": "KYC is mandatory.",
	   "metadata": {"regulator": "RBI", "doc_type": "master_direction"}}
	]`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	chunks, err := LoadChunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "RBI", chunks[1].Metadata.Regulator)
	assert.Empty(t, chunks[0].Embedding)
}

func TestLoadChunksMissingFile(t *testing.T) {
	_, err := LoadChunks(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadChunksEmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := LoadChunks(path)
	require.Error(t, err)
}
