package retriever

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder turns text into a fixed-size vector. The retrieval index build is
// outside this service; any embedder whose vectors are comparable across
// corpus and query text will do.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashEmbedder generates deterministic embeddings from a text hash. It gives
// stable, dependency-free vectors for local runs and tests.
type HashEmbedder struct {
	dimensions int
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{dimensions: 384}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

func (e *HashEmbedder) Dimensions() int { return e.dimensions }

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
