// Package embedding maps text to fixed-length dense vectors.
package embedding

import (
	"context"
	"math"
)

// Provider generates embeddings in batches. One provider instance is held
// process-wide and invoked concurrently by many workers; implementations must
// be stateless per call. Same model version + same text must produce
// numerically stable vectors, or retrieval stops being reproducible.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelVersion identifies the model generation; all chunks in one index
	// generation carry the same version and dimensionality.
	ModelVersion() string
	Dimension() int
}

// NormalizeVector scales a vector to unit length. pgvector cosine distance
// assumes normalized inputs for meaningful similarity values.
func NormalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
