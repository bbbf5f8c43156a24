package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaTestServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Deterministic: the vector depends only on the prompt.
		vec := make([]float64, dim)
		for i := range vec {
			vec[i] = float64(len(req.Prompt)%7 + i + 1)
		}
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: vec})
	}))
}

func TestOllamaEmbedDeterministic(t *testing.T) {
	srv := newOllamaTestServer(t, 4)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 4)

	first, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Len(t, first[0], 4)
}

func TestOllamaEmbedNormalizesVectors(t *testing.T) {
	srv := newOllamaTestServer(t, 3)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 3)
	vectors, err := p.Embed(context.Background(), []string{"text"})
	require.NoError(t, err)

	var mag float64
	for _, v := range vectors[0] {
		mag += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(mag), 1e-6)
}

func TestOllamaEmbedDimensionMismatch(t *testing.T) {
	srv := newOllamaTestServer(t, 3)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 768)
	_, err := p.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestOllamaEmbedBatchKeepsOrder(t *testing.T) {
	srv := newOllamaTestServer(t, 2)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 2)
	vectors, err := p.Embed(context.Background(), []string{"a", "ab", "abc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
}

func TestOllamaUnreachable(t *testing.T) {
	srv := newOllamaTestServer(t, 2)
	srv.Close() // immediately dead

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 2)
	_, err := p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestOllamaModelVersion(t *testing.T) {
	p := NewOllamaProvider("", "", 0)
	assert.Equal(t, "ollama/nomic-embed-text", p.ModelVersion())
}
