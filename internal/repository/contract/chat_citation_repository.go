package contract

import (
	"context"

	"github.com/google/uuid"
)

type ChatCitationRepository interface {
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
}
