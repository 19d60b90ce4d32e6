package entity

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type Document struct {
	Id             uuid.UUID
	FileName       string
	FileType       string
	MimeType       string
	FileSize       int64
	OwnerId        uuid.UUID
	CollectionId   *uuid.UUID
	Tags           []string
	CurrentVersion int
	IsArchived     bool
	Status         ProcessingStatus
	Summary        string
	ChunkCount     int
	TotalTokens    int64
	AccessCount    int64
	LastAccessedAt *time.Time
	// Revision is the optimistic concurrency token; every successful update bumps it.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (d *Document) OwnedBy(userId uuid.UUID) bool {
	return d.OwnerId == userId
}
