package main

import (
	"context"
	"sort"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"
)

// seeded groups written chunk ids by modality and document.
type seeded map[entity.Modality]map[string][]string

func (s seeded) add(e *entity.ChunkEmbedding) {
	if s[e.Modality] == nil {
		s[e.Modality] = make(map[string][]string)
	}
	s[e.Modality][e.DocumentId] = append(s[e.Modality][e.DocumentId], e.ChunkId)
}

// missingChunks reads the seeded rows back and returns the "modality/chunk" keys that
// are not in the store. Documents are read as a whole; chunks without a document id
// are looked up one by one.
func missingChunks(ctx context.Context, repo contract.ChunkEmbeddingRepository, s seeded) ([]string, error) {
	var missing []string
	for modality, documents := range s {
		byModality := specification.ByModality{Modality: string(modality)}

		for documentId, chunkIds := range documents {
			found := make(map[string]struct{})
			if documentId != "" {
				rows, err := repo.FindAll(ctx, byModality, specification.ByDocumentIDs{DocumentIDs: []string{documentId}})
				if err != nil {
					return nil, err
				}
				for _, r := range rows {
					found[r.ChunkId] = struct{}{}
				}
			} else {
				for _, id := range chunkIds {
					rows, err := repo.FindAll(ctx, byModality, specification.ByChunkID{ChunkID: id})
					if err != nil {
						return nil, err
					}
					if len(rows) > 0 {
						found[id] = struct{}{}
					}
				}
			}

			for _, id := range chunkIds {
				if _, ok := found[id]; !ok {
					missing = append(missing, string(modality)+"/"+id)
				}
			}
		}
	}
	sort.Strings(missing)
	return missing, nil
}
