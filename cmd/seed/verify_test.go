package main

import (
	"context"
	"errors"
	"testing"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableRepo answers FindAll by interpreting the embedding specifications over rows.
type tableRepo struct {
	contract.ChunkEmbeddingRepository
	rows  []*entity.ChunkEmbedding
	err   error
	calls int
}

func (r *tableRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []*entity.ChunkEmbedding
	for _, row := range r.rows {
		if matches(row, specs) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matches(row *entity.ChunkEmbedding, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByModality:
			if string(row.Modality) != s.Modality {
				return false
			}
		case specification.ByChunkID:
			if row.ChunkId != s.ChunkID {
				return false
			}
		case specification.ByDocumentIDs:
			ok := len(s.DocumentIDs) == 0
			for _, id := range s.DocumentIDs {
				ok = ok || row.DocumentId == id
			}
			if !ok {
				return false
			}
		}
	}
	return true
}

func TestMissingChunks(t *testing.T) {
	written := []*entity.ChunkEmbedding{
		{ChunkId: "policy-1", Modality: entity.ModalityText, DocumentId: "policy.pdf"},
		{ChunkId: "policy-2", Modality: entity.ModalityText, DocumentId: "policy.pdf"},
		{ChunkId: "chart-1", Modality: entity.ModalityImage, DocumentId: "policy.pdf"},
		{ChunkId: "loose-1", Modality: entity.ModalityText},
	}
	s := seeded{}
	for _, e := range written {
		s.add(e)
	}

	tests := []struct {
		name    string
		rows    []*entity.ChunkEmbedding
		missing []string
	}{
		{name: "everything stored", rows: written},
		{
			name:    "chunk stored under the wrong modality",
			rows:    []*entity.ChunkEmbedding{written[0], written[1], {ChunkId: "chart-1", Modality: entity.ModalityText, DocumentId: "policy.pdf"}, written[3]},
			missing: []string{"image/chart-1"},
		},
		{
			name:    "nothing stored",
			missing: []string{"image/chart-1", "text/loose-1", "text/policy-1", "text/policy-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, err := missingChunks(context.Background(), &tableRepo{rows: tt.rows}, s)
			require.NoError(t, err)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestMissingChunksReadsDocumentsOnce(t *testing.T) {
	s := seeded{}
	for i := 0; i < 5; i++ {
		s.add(&entity.ChunkEmbedding{ChunkId: string(rune('a' + i)), Modality: entity.ModalityText, DocumentId: "doc"})
	}
	repo := &tableRepo{}

	_, err := missingChunks(context.Background(), repo, s)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestMissingChunksStopsOnStoreError(t *testing.T) {
	s := seeded{}
	s.add(&entity.ChunkEmbedding{ChunkId: "a", Modality: entity.ModalityText, DocumentId: "doc"})

	_, err := missingChunks(context.Background(), &tableRepo{err: errors.New("connection reset")}, s)
	assert.EqualError(t, err, "connection reset")
}
