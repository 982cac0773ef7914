// Package embeddings produces dense vectors for retrieval. The primary
// provider runs local ONNX models through fastembed; builds without cgo
// fall back to a deterministic feature-hashing embedder so retrieval
// stays functional end to end.
package embeddings

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"FinSage/pkg/logger"
)

var (
	ErrInvalidConfig   = errors.New("embeddings: invalid config")
	ErrEmptyInput      = errors.New("embeddings: empty input")
	ErrEmbeddingFailed = errors.New("embeddings: embedding failed")
)

// Provider generates query and passage embeddings in one vector space.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Close() error
}

// Config selects the embedding model.
type Config struct {
	Model    string
	CacheDir string
}

// New returns the fastembed provider when the binary carries cgo,
// otherwise the hashing fallback. The fallback is logged loudly since
// its recall is far below a learned model.
func New(cfg Config, log *logger.Logger) Provider {
	p, err := newFastEmbed(cfg)
	if err != nil {
		log.Warn("fastembed unavailable, using hashing embedder",
			logger.String("model", cfg.Model),
			logger.Error(err))
		return NewHashing(hashingDimension)
	}
	log.Info("fastembed model loaded", logger.String("model", cfg.Model))
	return p
}

const hashingDimension = 384

// Hashing is a deterministic feature-hashing embedder. Tokens are
// hashed into a fixed number of buckets with a signed contribution and
// the vector is L2 normalized. Same text, same vector, always.
type Hashing struct {
	dim int
}

func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = hashingDimension
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *Hashing) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Close() error { return nil }

func (h *Hashing) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		sum := md5.Sum([]byte(tok))
		bucket := int(binary.LittleEndian.Uint32(sum[0:4])) % h.dim
		if bucket < 0 {
			bucket += h.dim
		}
		sign := float32(1)
		if sum[4]&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
