//go:build !cgo

package embeddings

import "fmt"

// fastembed needs cgo for onnxruntime. Builds without it fall back to
// the hashing embedder via New.
func newFastEmbed(cfg Config) (Provider, error) {
	return nil, fmt.Errorf("%w: fastembed requires a cgo build", ErrInvalidConfig)
}
