package entity

// SourceMetadata points back at where a chunk came from.
type SourceMetadata struct {
	DocumentId string                 `json:"document_id"`
	ClientId   string                 `json:"client_id,omitempty"`
	Page       int                    `json:"page"`
	Offset     int                    `json:"offset"`
	Uri        string                 `json:"uri,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// RetrievalResult lives for one query. Similarity is on the modality's own scale;
// FusedScore is comparable across modalities and zero until fusion runs.
type RetrievalResult struct {
	ChunkId    string         `json:"chunk_id"`
	Modality   Modality       `json:"modality"`
	Modalities []Modality     `json:"modalities"`
	Similarity float64        `json:"similarity"`
	FusedScore float64        `json:"fused_score"`
	Content    string         `json:"content"`
	Source     SourceMetadata `json:"source"`
}

func (r *RetrievalResult) Clone() *RetrievalResult {
	c := *r
	c.Modalities = append([]Modality(nil), r.Modalities...)
	return &c
}
