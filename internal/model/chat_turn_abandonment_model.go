package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatTurnAbandonment struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;index"`
	ClientId      string    `gorm:"type:varchar(100);index"`
	State         string    `gorm:"type:varchar(30);not null"`
	Reason        string    `gorm:"type:text"`
	ErrorKind     string    `gorm:"type:varchar(50)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (ChatTurnAbandonment) TableName() string {
	return "chat_turn_abandonments"
}
