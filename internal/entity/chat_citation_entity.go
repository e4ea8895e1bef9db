package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatCitation struct {
	Id            uuid.UUID
	ChatMessageId uuid.UUID
	Rank          int
	ChunkId       string
	Modality      Modality
	Modalities    []Modality
	Similarity    float64
	FusedScore    float64
	DocumentId    string
	CreatedAt     time.Time
}

// CitationsFromResults keeps the evidence order as citation rank.
func CitationsFromResults(results []*RetrievalResult) []*ChatCitation {
	citations := make([]*ChatCitation, len(results))
	for i, r := range results {
		citations[i] = &ChatCitation{
			Id:         uuid.New(),
			Rank:       i,
			ChunkId:    r.ChunkId,
			Modality:   r.Modality,
			Modalities: append([]Modality(nil), r.Modalities...),
			Similarity: r.Similarity,
			FusedScore: r.FusedScore,
			DocumentId: r.Source.DocumentId,
		}
	}
	return citations
}
