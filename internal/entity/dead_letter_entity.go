package entity

import (
	"time"

	"github.com/google/uuid"
)

type DeadLetter struct {
	Id         uuid.UUID
	Topic      string
	MessageId  string
	Payload    string
	Error      string
	RetryCount int
	CreatedAt  time.Time
}
