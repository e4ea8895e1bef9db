package search

import (
	"sort"

	"multimodal-rag-be/internal/entity"
)

// Fuse merges per-modality result sets into one ranking.
//
// Similarities are min-max normalized within each modality's current set so that
// different metrics become comparable, then scaled by the modality weight (1.0 when
// unset). A set whose scores are all equal keeps its raw similarity clamped to [0,1]
// because there is no spread to normalize against. Duplicated chunk ids keep the
// higher fused score and list every modality that found them. Output is sorted by
// fused score desc, chunk id asc, and truncated to k.
func Fuse(sets map[entity.Modality][]*entity.RetrievalResult, weights map[entity.Modality]float64, k int) []*entity.RetrievalResult {
	if k <= 0 {
		return []*entity.RetrievalResult{}
	}

	modalities := make([]entity.Modality, 0, len(sets))
	for m := range sets {
		modalities = append(modalities, m)
	}
	sort.Slice(modalities, func(i, j int) bool { return modalities[i] < modalities[j] })

	byChunk := make(map[string]*entity.RetrievalResult)
	seen := make(map[string]map[entity.Modality]struct{})

	for _, modality := range modalities {
		set := sets[modality]
		if len(set) == 0 {
			continue
		}

		weight := 1.0
		if w, ok := weights[modality]; ok {
			weight = w
		}

		lo, hi := set[0].Similarity, set[0].Similarity
		for _, r := range set[1:] {
			if r.Similarity < lo {
				lo = r.Similarity
			}
			if r.Similarity > hi {
				hi = r.Similarity
			}
		}

		for _, r := range set {
			var norm float64
			if hi > lo {
				norm = (r.Similarity - lo) / (hi - lo)
			} else {
				norm = clamp01(r.Similarity)
			}

			candidate := r.Clone()
			candidate.Modality = modality
			candidate.FusedScore = norm * weight

			if seen[r.ChunkId] == nil {
				seen[r.ChunkId] = make(map[entity.Modality]struct{})
			}
			seen[r.ChunkId][modality] = struct{}{}

			existing, ok := byChunk[r.ChunkId]
			if !ok || candidate.FusedScore > existing.FusedScore {
				byChunk[r.ChunkId] = candidate
			}
		}
	}

	fused := make([]*entity.RetrievalResult, 0, len(byChunk))
	for id, r := range byChunk {
		r.Modalities = r.Modalities[:0]
		for m := range seen[id] {
			r.Modalities = append(r.Modalities, m)
		}
		sort.Slice(r.Modalities, func(i, j int) bool { return r.Modalities[i] < r.Modalities[j] })
		fused = append(fused, r)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].ChunkId < fused[j].ChunkId
	})

	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
