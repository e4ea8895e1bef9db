package mapper

import (
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		ClientId:  s.ClientId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		ClientId:  s.ClientId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var citations []*entity.ChatCitation
	if len(msg.Citations) > 0 {
		citations = make([]*entity.ChatCitation, len(msg.Citations))
		for i := range msg.Citations {
			citations[i] = m.ChatCitationToEntity(&msg.Citations[i])
		}
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Position:      msg.Position,
		Role:          msg.Role,
		Chat:          msg.Chat,
		Citations:     citations,
		InputAt:       msg.InputAt,
		OutputAt:      msg.OutputAt,
		DurationMs:    msg.DurationMs,
		CreatedAt:     msg.CreatedAt,
	}
}

// ChatMessageToModel leaves Citations empty; they are inserted separately so the
// caller controls the transaction.
func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Position:      msg.Position,
		Role:          msg.Role,
		Chat:          msg.Chat,
		InputAt:       msg.InputAt,
		OutputAt:      msg.OutputAt,
		DurationMs:    msg.DurationMs,
		CreatedAt:     msg.CreatedAt,
	}
}

// Citation Mappers

func (m *ChatMapper) ChatCitationToEntity(c *model.ChatCitation) *entity.ChatCitation {
	if c == nil {
		return nil
	}

	modalities := make([]entity.Modality, len(c.Modalities))
	for i, mod := range c.Modalities {
		modalities[i] = entity.Modality(mod)
	}

	return &entity.ChatCitation{
		Id:            c.Id,
		ChatMessageId: c.ChatMessageId,
		Rank:          c.Rank,
		ChunkId:       c.ChunkId,
		Modality:      entity.Modality(c.Modality),
		Modalities:    modalities,
		Similarity:    c.Similarity,
		FusedScore:    c.FusedScore,
		DocumentId:    c.DocumentId,
		CreatedAt:     c.CreatedAt,
	}
}

func (m *ChatMapper) ChatCitationToModel(c *entity.ChatCitation) *model.ChatCitation {
	if c == nil {
		return nil
	}

	modalities := make([]string, len(c.Modalities))
	for i, mod := range c.Modalities {
		modalities[i] = string(mod)
	}

	return &model.ChatCitation{
		Id:            c.Id,
		ChatMessageId: c.ChatMessageId,
		Rank:          c.Rank,
		ChunkId:       c.ChunkId,
		Modality:      string(c.Modality),
		Modalities:    datatypes.JSONSlice[string](modalities),
		Similarity:    c.Similarity,
		FusedScore:    c.FusedScore,
		DocumentId:    c.DocumentId,
		CreatedAt:     c.CreatedAt,
	}
}

// Feedback Mappers

func (m *ChatMapper) FeedbackToEntity(f *model.MessageFeedback) *entity.MessageFeedback {
	if f == nil {
		return nil
	}
	return &entity.MessageFeedback{
		Id:            f.Id,
		ChatMessageId: f.ChatMessageId,
		Rating:        f.Rating,
		Label:         f.Label,
		Comment:       f.Comment,
		CreatedAt:     f.CreatedAt,
	}
}

func (m *ChatMapper) FeedbackToModel(f *entity.MessageFeedback) *model.MessageFeedback {
	if f == nil {
		return nil
	}
	return &model.MessageFeedback{
		Id:            f.Id,
		ChatMessageId: f.ChatMessageId,
		Rating:        f.Rating,
		Label:         f.Label,
		Comment:       f.Comment,
		CreatedAt:     f.CreatedAt,
	}
}

// Abandonment Mappers

func (m *ChatMapper) AbandonmentToModel(a *entity.ChatTurnAbandonment) *model.ChatTurnAbandonment {
	if a == nil {
		return nil
	}
	return &model.ChatTurnAbandonment{
		Id:            a.Id,
		ChatSessionId: a.ChatSessionId,
		ClientId:      a.ClientId,
		State:         a.State,
		Reason:        a.Reason,
		ErrorKind:     a.ErrorKind,
		CreatedAt:     a.CreatedAt,
	}
}

func (m *ChatMapper) AbandonmentToEntity(a *model.ChatTurnAbandonment) *entity.ChatTurnAbandonment {
	if a == nil {
		return nil
	}
	return &entity.ChatTurnAbandonment{
		Id:            a.Id,
		ChatSessionId: a.ChatSessionId,
		ClientId:      a.ClientId,
		State:         a.State,
		Reason:        a.Reason,
		ErrorKind:     a.ErrorKind,
		CreatedAt:     a.CreatedAt,
	}
}
