package retrieval

import (
	"encoding/json"
	"fmt"
	"os"

	"FinSage/internal/domain/models"
)

// LoadChunks reads a corpus dump produced by the ingestion pipeline: a
// JSON array of document chunks, embeddings optional.
func LoadChunks(path string) ([]models.DocumentChunk, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunks file: %w", err)
	}
	var chunks []models.DocumentChunk
	if err := json.Unmarshal(b, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks file %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunks file %s is empty", path)
	}
	return chunks, nil
}
