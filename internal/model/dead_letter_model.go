package model

import (
	"time"

	"github.com/google/uuid"
)

type DeadLetter struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Topic      string    `gorm:"type:varchar(128);not null;index"`
	MessageId  string    `gorm:"type:varchar(64)"`
	Payload    string    `gorm:"type:text"`
	Error      string    `gorm:"type:text"`
	RetryCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (DeadLetter) TableName() string {
	return "dead_letters"
}
