package embedding

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider memoizes embeddings per (model version, text). It fronts the
// query path only: embedding is deterministic for a fixed model version, so a
// repeated query can skip the round trip. Document-side embedding always goes
// straight to the provider.
type CachedProvider struct {
	inner Provider
	cache *gocache.Cache
}

func NewCachedProvider(inner Provider, ttl time.Duration) Provider {
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) ModelVersion() string {
	return p.inner.ModelVersion()
}

func (p *CachedProvider) Dimension() int {
	return p.inner.Dimension()
}

func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var misses []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := p.cache.Get(p.key(text)); ok {
			vectors[i] = v.([]float32)
			continue
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return vectors, nil
	}

	fresh, err := p.inner.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, vec := range fresh {
		vectors[missIdx[j]] = vec
		p.cache.Set(p.key(misses[j]), vec, gocache.DefaultExpiration)
	}
	return vectors, nil
}

func (p *CachedProvider) key(text string) string {
	return p.inner.ModelVersion() + "\x00" + text
}
