// Package hybrid merges vector-similarity and keyword rankings into one
// ordered result list.
package hybrid

import (
	"sort"

	"github.com/google/uuid"
)

// Entry is one ranked chunk from a single retrieval modality.
type Entry struct {
	ChunkId  uuid.UUID
	SeqIndex int
	Score    float64 // raw modality score (cosine similarity or ts_rank)
}

// Weights scales each modality's normalized score. The defaults keep both at
// 1.0 so a chunk found by both modalities always outranks the same evidence
// from one modality alone.
type Weights struct {
	Vector  float64
	Keyword float64
}

func DefaultWeights() Weights {
	return Weights{Vector: 1.0, Keyword: 1.0}
}

// Result is one merged chunk with its fused score.
type Result struct {
	ChunkId     uuid.UUID
	Score       float64
	FromVector  bool
	FromKeyword bool
}

// Merge min-max normalizes each list, then combines with a weighted sum.
// A chunk present in only one list keeps that list's weighted normalized
// score; the missing modality is never zero-filled into an average. Ties are
// broken by the higher raw score, then the lower sequence index, so ordering
// is fully deterministic.
func Merge(vector, keyword []Entry, k int, w Weights) []Result {
	type merged struct {
		res      Result
		bestRaw  float64
		seqIndex int
	}

	vNorm := normalize(vector)
	kNorm := normalize(keyword)

	byId := make(map[uuid.UUID]*merged, len(vector)+len(keyword))

	for i, e := range vector {
		byId[e.ChunkId] = &merged{
			res: Result{
				ChunkId:    e.ChunkId,
				Score:      w.Vector * vNorm[i],
				FromVector: true,
			},
			bestRaw:  e.Score,
			seqIndex: e.SeqIndex,
		}
	}

	for i, e := range keyword {
		if m, ok := byId[e.ChunkId]; ok {
			m.res.Score += w.Keyword * kNorm[i]
			m.res.FromKeyword = true
			if e.Score > m.bestRaw {
				m.bestRaw = e.Score
			}
			continue
		}
		byId[e.ChunkId] = &merged{
			res: Result{
				ChunkId:     e.ChunkId,
				Score:       w.Keyword * kNorm[i],
				FromKeyword: true,
			},
			bestRaw:  e.Score,
			seqIndex: e.SeqIndex,
		}
	}

	all := make([]*merged, 0, len(byId))
	for _, m := range byId {
		all = append(all, m)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].res.Score != all[j].res.Score {
			return all[i].res.Score > all[j].res.Score
		}
		if all[i].bestRaw != all[j].bestRaw {
			return all[i].bestRaw > all[j].bestRaw
		}
		return all[i].seqIndex < all[j].seqIndex
	})

	if k > 0 && len(all) > k {
		all = all[:k]
	}

	results := make([]Result, len(all))
	for i, m := range all {
		results[i] = m.res
	}
	return results
}

// normalize maps scores to [0,1] per list (min-max). A list whose scores are
// all equal normalizes to 1.0 for every member: rank order inside the list is
// already meaningless there, and 0.0 would erase the evidence entirely.
func normalize(entries []Entry) []float64 {
	norm := make([]float64, len(entries))
	if len(entries) == 0 {
		return norm
	}

	min, max := entries[0].Score, entries[0].Score
	for _, e := range entries[1:] {
		if e.Score < min {
			min = e.Score
		}
		if e.Score > max {
			max = e.Score
		}
	}

	if max == min {
		for i := range norm {
			norm[i] = 1.0
		}
		return norm
	}

	for i, e := range entries {
		norm[i] = (e.Score - min) / (max - min)
	}
	return norm
}
